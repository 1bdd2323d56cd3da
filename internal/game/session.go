// Package game holds the coordination state: the per-session turn
// machine with its mailboxes and update history, and the World that
// owns every session.
//
// Session is not safe for concurrent use.  All access goes through
// World, which serialises it under a single lock.
package game

import (
	"fmt"

	"github.com/samber/lo"

	mgerr "minignet/internal/errors"
	"minignet/internal/protocol"
)

// State is the lifecycle phase of a session.
type State int

const (
	// StateJoin is the initial phase; gamers gather.
	StateJoin State = iota
	// StateGame means turns are being played.
	StateGame
	// StateOver is terminal until an explicit reset.
	StateOver
)

func (s State) String() string {
	switch s {
	case StateJoin:
		return "join"
	case StateGame:
		return "game"
	case StateOver:
		return "over"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// gamer is everything a session keeps for one participant.
type gamer struct {
	updates [][]byte           // append-only, cleared by reset
	mailbox []protocol.Message // FIFO, drained by the owner
}

// Session is one named turn-based game.
type Session struct {
	gamers map[protocol.GamerID]*gamer
	order  []protocol.GamerID // join order == turn order
	turn   int
	state  State
}

// NewSession returns an empty session in the join phase.
func NewSession() *Session {
	return &Session{gamers: make(map[protocol.GamerID]*gamer)}
}

// Join registers id.  Joining twice is a no-op and does not move the
// gamer in the turn order.  Joining is allowed in every state.
func (s *Session) Join(id protocol.GamerID) {
	if _, ok := s.gamers[id]; ok {
		return
	}
	s.gamers[id] = &gamer{}
	s.order = append(s.order, id)
}

// Start moves the session from join to game.
func (s *Session) Start() error {
	if s.state != StateJoin {
		return mgerr.Transition("start", s.state.String())
	}
	s.state = StateGame
	return nil
}

// End moves the session from game to over.
func (s *Session) End() error {
	if s.state != StateGame {
		return mgerr.Transition("end", s.state.String())
	}
	s.state = StateOver
	return nil
}

// Reset rewinds to the join phase, hands the turn back to the first
// gamer and forgets every submitted update.  Participants, turn order
// and undelivered messages survive.
func (s *Session) Reset() {
	s.state = StateJoin
	s.turn = 0
	for _, g := range s.gamers {
		g.updates = nil
	}
}

// IsGameOn reports whether turns are being played.
func (s *Session) IsGameOn() bool { return s.state == StateGame }

// IsGamerTurn reports whether id holds the turn.  Unknown gamers and
// sessions outside the game phase never do.
func (s *Session) IsGamerTurn(id protocol.GamerID) bool {
	if s.state != StateGame || len(s.order) == 0 {
		return false
	}
	return lo.IndexOf(s.order, id) == s.turn
}

// NextGamer passes the turn to the following gamer in join order,
// wrapping around.
func (s *Session) NextGamer() error {
	if len(s.order) == 0 {
		return mgerr.ErrNoGamers
	}
	s.turn = (s.turn + 1) % len(s.order)
	return nil
}

// AddUpdate appends update to id's history.
func (s *Session) AddUpdate(id protocol.GamerID, update []byte) error {
	g, ok := s.gamers[id]
	if !ok {
		return fmt.Errorf("%w %q", mgerr.ErrUnknownGamer, id)
	}
	g.updates = append(g.updates, update)
	return nil
}

// LatestUpdates returns the most recent update of every gamer; gamers
// without one map to nil.
func (s *Session) LatestUpdates() map[protocol.GamerID][]byte {
	out := make(map[protocol.GamerID][]byte, len(s.gamers))
	for id, g := range s.gamers {
		if n := len(g.updates); n > 0 {
			out[id] = g.updates[n-1]
		} else {
			out[id] = nil
		}
	}
	return out
}

// SaveMessage queues msg for its recipients.  A broadcast reaches every
// gamer but the sender.  A direct message to an unknown gamer is
// rejected and nothing is queued.
func (s *Session) SaveMessage(msg protocol.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if msg.To.IsAll() {
		for _, id := range lo.Without(s.order, msg.From) {
			g := s.gamers[id]
			g.mailbox = append(g.mailbox, msg)
		}
		return nil
	}

	g, ok := s.gamers[msg.To.Gamer]
	if !ok {
		return fmt.Errorf("%w %q", mgerr.ErrUnknownGamer, msg.To.Gamer)
	}
	g.mailbox = append(g.mailbox, msg)
	return nil
}

// PopMessages hands over id's whole mailbox and leaves it empty.
func (s *Session) PopMessages(id protocol.GamerID) ([]protocol.Message, error) {
	g, ok := s.gamers[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", mgerr.ErrUnknownGamer, id)
	}
	out := g.mailbox
	g.mailbox = nil
	if out == nil {
		out = []protocol.Message{}
	}
	return out, nil
}

// ── introspection ────────────────────────────────────────────────────

// Summary is a detached copy of a session's observable state.
type Summary struct {
	ID      protocol.SessionID `json:"id"`
	State   string             `json:"state"`
	Gamers  []protocol.GamerID `json:"gamers"`
	Current protocol.GamerID   `json:"current,omitempty"`
	Pending map[string]int     `json:"pending_messages"`
	Updates map[string]int     `json:"updates"`
}

func (s *Session) summary(id protocol.SessionID) Summary {
	sum := Summary{
		ID:      id,
		State:   s.state.String(),
		Gamers:  append([]protocol.GamerID(nil), s.order...),
		Pending: make(map[string]int, len(s.gamers)),
		Updates: make(map[string]int, len(s.gamers)),
	}
	if s.state == StateGame && len(s.order) > 0 {
		sum.Current = s.order[s.turn]
	}
	for gid, g := range s.gamers {
		sum.Pending[gid] = len(g.mailbox)
		sum.Updates[gid] = len(g.updates)
	}
	return sum
}
