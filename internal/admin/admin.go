// Package admin serves a read-only HTTP view of a running server:
// metrics and session summaries as JSON.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	mgerr "minignet/internal/errors"
	"minignet/internal/game"
	"minignet/internal/metrics"
	"minignet/util"
)

// Server is the admin HTTP endpoint.
type Server struct {
	world   *game.World
	metrics *metrics.Collector
	logger  *util.Logger
	grace   time.Duration
}

// New returns an admin endpoint over world and m.  grace bounds the
// shutdown drain.
func New(world *game.World, m *metrics.Collector, logger *util.Logger, grace time.Duration) *Server {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Server{world: world, metrics: m, logger: logger, grace: grace}
}

// Handler returns the routes:
//
//	GET /stats           metrics snapshot
//	GET /sessions        every session summary, ordered by id
//	GET /sessions/{id}   one summary, 404 if unknown
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.sessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.session).Methods(http.MethodGet)
	return r
}

// ListenAndServe binds addr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return mgerr.Wrap("listen", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the endpoint on ln until ctx ends, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.logger.Info("admin endpoint on http://%s", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) sessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.world.Summaries())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sum, err := s.world.Summary(id)
	if errors.Is(err, mgerr.ErrUnknownSession) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v) //nolint:errcheck
}
