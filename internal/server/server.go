// Package server exposes a game.World over TCP.
//
// Each connection carries exactly one request and one response.  The
// client writes an encoded Operation and half-closes; the server reads
// to EOF, applies the operation, writes the encoded Response, and
// closes.  Connections are served concurrently, one goroutine each.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	mgerr "minignet/internal/errors"
	"minignet/internal/game"
	"minignet/internal/metrics"
	"minignet/internal/protocol"
	"minignet/util"
)

// Options tunes connection handling.
type Options struct {
	// Timeout bounds the whole exchange on one connection.  Zero
	// leaves a silent client holding its goroutine indefinitely.
	Timeout time.Duration
	// MaxRequestBytes caps a request frame.  Zero means unlimited.
	MaxRequestBytes int64
}

// Server answers protocol requests against a World.
type Server struct {
	world   *game.World
	metrics *metrics.Collector
	logger  *util.Logger
	opts    Options

	wg sync.WaitGroup

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	draining bool
}

// New returns a Server for world.  m and logger may be nil.
func New(world *game.World, opts Options, m *metrics.Collector, logger *util.Logger) *Server {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Server{
		world:   world,
		metrics: m,
		logger:  logger,
		opts:    opts,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds addr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return mgerr.Wrap("listen", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then closes ln and
// waits for in-flight exchanges to finish.  Connections still waiting
// for their request are cut off at that point.  It returns nil on a
// context-driven shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	s.logger.Info("listening on %s", ln.Addr())

	// Shut the listener down when the context expires.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
			s.drain()
		case <-stop:
		}
	}()

	defer s.wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Verbose("listener on %s closed", ln.Addr())
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept: %v", err)
				continue
			}
			return mgerr.Wrap("accept", ln.Addr().String(), err)
		}

		// Set before tracking so drain's read deadline is never overwritten.
		if s.opts.Timeout > 0 {
			conn.SetDeadline(time.Now().Add(s.opts.Timeout)) //nolint:errcheck
		}
		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}
}

// track registers conn for shutdown.  It refuses once draining began.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// drain expires the read side of every open connection so handlers
// blocked on a silent client return.  Responses already being written
// are not interrupted.
func (s *Server) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
	for conn := range s.conns {
		conn.SetReadDeadline(time.Now()) //nolint:errcheck
	}
}

// serveConn runs one request/response exchange.  Failures stay on this
// connection.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := s.logger.With("conn", uuid.NewString()[:8])
	log.Debug("connection from %s", conn.RemoteAddr())

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	in := &util.CountingReader{R: conn}
	defer func() { s.metrics.BytesReceived(in.N) }()

	req, err := util.ReadToEnd(in, s.opts.MaxRequestBytes)

	var resp protocol.Response
	switch {
	case errors.Is(err, mgerr.ErrRequestTooLarge):
		// Drain so the client sees our answer instead of a reset.
		io.Copy(io.Discard, in) //nolint:errcheck
		log.Warn("rejecting request from %s: %v", conn.RemoteAddr(), err)
		resp = protocol.Fail(err)
	case err != nil && ctx.Err() != nil:
		log.Verbose("dropping unfinished request from %s at shutdown", conn.RemoteAddr())
		return
	case err != nil:
		if !util.IsHarmless(err) {
			log.Warn("read from %s: %v", conn.RemoteAddr(), err)
		}
		return
	default:
		op, err := protocol.DecodeOperation(req)
		if err != nil {
			s.metrics.DecodeFailed()
			log.Warn("bad request from %s: %v", conn.RemoteAddr(), err)
			resp = protocol.Fail(err)
			break
		}
		s.metrics.RequestHandled(op.Kind())
		resp = s.handle(log, op)
	}

	if e, ok := resp.(protocol.Error); ok {
		s.metrics.RecordError(e.Reason)
	}

	out, err := protocol.EncodeResponse(resp)
	if err != nil {
		log.Error("encode %s: %v", resp.Kind(), err)
		return
	}
	n, err := util.WriteAndCloseWrite(conn, out)
	s.metrics.BytesSent(int64(n))
	if err != nil && !util.IsHarmless(err) {
		log.Warn("write to %s: %v", conn.RemoteAddr(), err)
	}
}

// handle applies op, turning a panic into an Error response.
func (s *Server) handle(log *util.Logger, op protocol.Operation) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic handling %s for session %q: %v", op.Kind(), op.Target(), r)
			resp = protocol.Fail(fmt.Errorf("internal error handling %s", op.Kind()))
		}
	}()

	resp = Dispatch(s.world, op)
	log.Debug("%s %q -> %s", op.Kind(), op.Target(), resp.Kind())
	return resp
}
