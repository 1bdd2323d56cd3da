package game

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	mgerr "minignet/internal/errors"
	"minignet/internal/protocol"
	"minignet/util"
)

// World is the registry of every session known to the server.
//
// A single mutex guards the map and all sessions in it, so every
// operation is linearisable across the whole server.  Unrelated
// sessions are serialised too; that is the throughput ceiling of this
// design and it is accepted.  Sessions are created by the first join
// and live as long as the process.
type World struct {
	mu       sync.Mutex
	sessions map[protocol.SessionID]*Session
	logger   *util.Logger
}

// NewWorld returns an empty registry.  logger may be nil.
func NewWorld(logger *util.Logger) *World {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &World{
		sessions: make(map[protocol.SessionID]*Session),
		logger:   logger,
	}
}

// with runs fn on an existing session under the registry lock.
func (w *World) with(sid protocol.SessionID, fn func(*Session) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[sid]
	if !ok {
		return fmt.Errorf("%w %q", mgerr.ErrUnknownSession, sid)
	}
	return fn(s)
}

// Join adds gid to sid, creating the session when it does not exist.
func (w *World) Join(sid protocol.SessionID, gid protocol.GamerID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[sid]
	if !ok {
		s = NewSession()
		w.sessions[sid] = s
		w.logger.Verbose("session %q created", sid)
	}
	s.Join(gid)
}

// Reset rewinds sid to the join phase.
func (w *World) Reset(sid protocol.SessionID) error {
	return w.with(sid, func(s *Session) error {
		s.Reset()
		w.logger.Verbose("session %q reset", sid)
		return nil
	})
}

// Start begins play in sid.
func (w *World) Start(sid protocol.SessionID) error {
	return w.with(sid, func(s *Session) error {
		if err := s.Start(); err != nil {
			w.logger.Warn("session %q: %v", sid, err)
			return err
		}
		w.logger.Info("session %q started with %d gamer(s)", sid, len(s.order))
		return nil
	})
}

// End finishes play in sid.
func (w *World) End(sid protocol.SessionID) error {
	return w.with(sid, func(s *Session) error {
		if err := s.End(); err != nil {
			w.logger.Warn("session %q: %v", sid, err)
			return err
		}
		w.logger.Info("session %q is over", sid)
		return nil
	})
}

// IsGamerTurn reports whether gid holds the turn in sid.
func (w *World) IsGamerTurn(sid protocol.SessionID, gid protocol.GamerID) (bool, error) {
	var turn bool
	err := w.with(sid, func(s *Session) error {
		turn = s.IsGamerTurn(gid)
		return nil
	})
	return turn, err
}

// IsGameOn reports whether sid is in the game phase.
func (w *World) IsGameOn(sid protocol.SessionID) (bool, error) {
	var on bool
	err := w.with(sid, func(s *Session) error {
		on = s.IsGameOn()
		return nil
	})
	return on, err
}

// NextGamer passes the turn in sid.
func (w *World) NextGamer(sid protocol.SessionID) error {
	return w.with(sid, func(s *Session) error {
		return s.NextGamer()
	})
}

// SendUpdate records gid's round update in sid.
func (w *World) SendUpdate(sid protocol.SessionID, gid protocol.GamerID, update []byte) error {
	return w.with(sid, func(s *Session) error {
		return s.AddUpdate(gid, update)
	})
}

// PreviousRoundUpdates returns the latest update of each gamer in sid.
func (w *World) PreviousRoundUpdates(sid protocol.SessionID) (map[protocol.GamerID][]byte, error) {
	var updates map[protocol.GamerID][]byte
	err := w.with(sid, func(s *Session) error {
		updates = s.LatestUpdates()
		return nil
	})
	return updates, err
}

// SendMessage queues msg in sid.
func (w *World) SendMessage(sid protocol.SessionID, msg protocol.Message) error {
	return w.with(sid, func(s *Session) error {
		return s.SaveMessage(msg)
	})
}

// FetchAllMessages drains gid's mailbox in sid.
func (w *World) FetchAllMessages(sid protocol.SessionID, gid protocol.GamerID) ([]protocol.Message, error) {
	var msgs []protocol.Message
	err := w.with(sid, func(s *Session) error {
		var err error
		msgs, err = s.PopMessages(gid)
		return err
	})
	return msgs, err
}

// ── introspection ────────────────────────────────────────────────────

// Len returns the number of sessions.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

// Summaries returns a snapshot of every session, ordered by id.
func (w *World) Summaries() []Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := lo.MapToSlice(w.sessions, func(id protocol.SessionID, s *Session) Summary {
		return s.summary(id)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary returns a snapshot of sid.
func (w *World) Summary(sid protocol.SessionID) (Summary, error) {
	var sum Summary
	err := w.with(sid, func(s *Session) error {
		sum = s.summary(sid)
		return nil
	})
	return sum, err
}
