// Package client is the request side of the minignet protocol.
//
// A Client is bound to one session and one gamer.  Every call opens a
// fresh connection, sends one operation, half-closes, and reads the
// single response.  Nothing is retried implicitly: a transport failure
// or an Error response is returned to the caller as is.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	mgerr "minignet/internal/errors"
	"minignet/internal/protocol"
	"minignet/internal/retry"
	"minignet/internal/transport"
	"minignet/util"
)

// Client sends operations to one server on behalf of one gamer.
type Client struct {
	addr    string
	session protocol.SessionID
	gamer   protocol.GamerID

	dialer       transport.Dialer
	timeout      time.Duration
	pollInterval time.Duration
	pollMax      time.Duration
	logger       *util.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithDialer routes connections through d (for example an SSH dialer).
func WithDialer(d transport.Dialer) Option { return func(c *Client) { c.dialer = d } }

// WithTimeout bounds each request, dial included.  Zero means only the
// caller's context applies.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithPolling sets the first and the largest delay of the wait helpers.
func WithPolling(interval, ceiling time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollMax = ceiling
	}
}

// WithLogger sets the logger.
func WithLogger(l *util.Logger) Option { return func(c *Client) { c.logger = l } }

// New returns a Client for gamer in session at addr (host:port).
func New(addr string, session protocol.SessionID, gamer protocol.GamerID, opts ...Option) *Client {
	c := &Client{
		addr:         addr,
		session:      session,
		gamer:        gamer,
		pollInterval: 500 * time.Millisecond,
		pollMax:      5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	if c.dialer == nil {
		c.dialer = &transport.TCPDialer{}
	}
	if c.logger == nil {
		c.logger = util.NewLogger(0)
	}
	return c
}

// Session returns the session the client acts in.
func (c *Client) Session() protocol.SessionID { return c.session }

// Gamer returns the gamer the client acts for.
func (c *Client) Gamer() protocol.GamerID { return c.gamer }

// Close releases the dialer.
func (c *Client) Close() error { return c.dialer.Close() }

// Do performs one request/response exchange.  An Error response is
// returned as a value, not as an error; only transport and decode
// failures produce err.
func (c *Client) Do(ctx context.Context, op protocol.Operation) (protocol.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := protocol.EncodeOperation(op)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialer.Dial(ctx, c.addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl) //nolint:errcheck
	}
	// Unblock I/O if ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if _, err := util.WriteAndCloseWrite(conn, req); err != nil {
		return nil, c.ioError(ctx, "write", err)
	}
	raw, err := util.ReadToEnd(conn, 0)
	if err != nil {
		return nil, c.ioError(ctx, "read", err)
	}
	if len(raw) == 0 {
		return nil, mgerr.Wrap("read", c.addr, fmt.Errorf("connection closed without a response"))
	}

	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("%s %q -> %s", op.Kind(), op.Target(), resp.Kind())
	return resp, nil
}

// ioError reports a failed exchange, preferring the context's verdict
// when the connection deadline came from it.
func (c *Client) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if dl, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) && !time.Now().Before(dl) {
		return context.DeadlineExceeded
	}
	return mgerr.Wrap(op, c.addr, err)
}

// ── typed helpers ────────────────────────────────────────────────────

// expect runs op and converts the response to T.  An Error response
// becomes *errors.RemoteError; any other variant is a protocol
// violation.
func expect[T protocol.Response](ctx context.Context, c *Client, op protocol.Operation) (T, error) {
	var zero T
	resp, err := c.Do(ctx, op)
	if err != nil {
		return zero, err
	}
	switch r := resp.(type) {
	case T:
		return r, nil
	case protocol.Error:
		return zero, &mgerr.RemoteError{Op: op.Kind().String(), Reason: r.Reason}
	default:
		return zero, fmt.Errorf("%w: %s answered with %s", mgerr.ErrUnexpectedResponse, op.Kind(), resp.Kind())
	}
}

func (c *Client) ok(ctx context.Context, op protocol.Operation) error {
	_, err := expect[protocol.Ok](ctx, c, op)
	return err
}

func (c *Client) flag(ctx context.Context, op protocol.Operation) (bool, error) {
	r, err := expect[protocol.OkWithBool](ctx, c, op)
	return r.Value, err
}

// JoinSession adds the gamer to the session, creating it if needed.
func (c *Client) JoinSession(ctx context.Context) error {
	return c.ok(ctx, protocol.JoinSession{Session: c.session, Gamer: c.gamer})
}

// ResetSession rewinds the session to the join phase.
func (c *Client) ResetSession(ctx context.Context) error {
	return c.ok(ctx, protocol.ResetSession{Session: c.session})
}

// StartSession begins play.
func (c *Client) StartSession(ctx context.Context) error {
	return c.ok(ctx, protocol.StartSession{Session: c.session})
}

// EndSession finishes play.
func (c *Client) EndSession(ctx context.Context) error {
	return c.ok(ctx, protocol.EndSession{Session: c.session})
}

// IsGamerTurn reports whether the gamer holds the turn.
func (c *Client) IsGamerTurn(ctx context.Context) (bool, error) {
	return c.flag(ctx, protocol.IsGamerTurn{Session: c.session, Gamer: c.gamer})
}

// IsGameOn reports whether the session is in the game phase.
func (c *Client) IsGameOn(ctx context.Context) (bool, error) {
	return c.flag(ctx, protocol.IsGameOn{Session: c.session})
}

// NextGamer passes the turn.
func (c *Client) NextGamer(ctx context.Context) error {
	return c.ok(ctx, protocol.NextGamer{Session: c.session})
}

// SendUpdate submits the gamer's update for this round.
func (c *Client) SendUpdate(ctx context.Context, update []byte) error {
	return c.ok(ctx, protocol.SendUpdate{Session: c.session, Gamer: c.gamer, Update: update})
}

// PreviousRoundUpdates returns the latest update of every gamer; gamers
// that have not submitted one map to nil.
func (c *Client) PreviousRoundUpdates(ctx context.Context) (map[protocol.GamerID][]byte, error) {
	r, err := expect[protocol.OkWithPreviousRoundUpdates](ctx, c, protocol.GetPreviousRoundUpdates{Session: c.session})
	return r.Updates, err
}

// Broadcast sends payload to every other gamer in the session.
func (c *Client) Broadcast(ctx context.Context, payload []byte) error {
	return c.send(ctx, protocol.ToAll(), payload)
}

// SendTo sends payload to one gamer.
func (c *Client) SendTo(ctx context.Context, to protocol.GamerID, payload []byte) error {
	return c.send(ctx, protocol.ToOne(to), payload)
}

func (c *Client) send(ctx context.Context, to protocol.Address, payload []byte) error {
	return c.ok(ctx, protocol.SendMessage{
		Session: c.session,
		Message: protocol.NewMessage(c.gamer, to, payload),
	})
}

// FetchAllMessages drains the gamer's mailbox, oldest first.
func (c *Client) FetchAllMessages(ctx context.Context) ([]protocol.Message, error) {
	r, err := expect[protocol.OkWithMessages](ctx, c, protocol.FetchAllMessages{Session: c.session, Gamer: c.gamer})
	return r.Messages, err
}

// ── waiting ──────────────────────────────────────────────────────────

// WaitForTurn polls until the gamer holds the turn or ctx ends.  Any
// failed poll ends the wait with that error.
func (c *Client) WaitForTurn(ctx context.Context) error {
	return c.wait(ctx, "turn", c.IsGamerTurn)
}

// WaitForGameOn polls until the session is in the game phase or ctx
// ends.  Any failed poll ends the wait with that error.
func (c *Client) WaitForGameOn(ctx context.Context) error {
	return c.wait(ctx, "game on", c.IsGameOn)
}

func (c *Client) wait(ctx context.Context, what string, check func(context.Context) (bool, error)) error {
	c.logger.Verbose("waiting for %s in %q", what, c.session)
	b := retry.PollBackoff(c.pollInterval, c.pollMax)
	b.OnWait = func(attempt int, wait time.Duration) {
		c.logger.Debug("no %s yet after %d check(s), next in %s", what, attempt, wait.Round(time.Millisecond))
	}
	return b.Poll(ctx, check)
}
