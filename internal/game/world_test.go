package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mgerr "minignet/internal/errors"
	"minignet/internal/protocol"
)

func TestWorld_TurnScenario(t *testing.T) {
	w := NewWorld(nil)

	w.Join("s1", "alice")
	w.Join("s1", "bob")
	require.NoError(t, w.Start("s1"))

	on, err := w.IsGameOn("s1")
	require.NoError(t, err)
	assert.True(t, on)

	turn, err := w.IsGamerTurn("s1", "alice")
	require.NoError(t, err)
	assert.True(t, turn)

	turn, err = w.IsGamerTurn("s1", "bob")
	require.NoError(t, err)
	assert.False(t, turn)

	require.NoError(t, w.NextGamer("s1"))

	turn, err = w.IsGamerTurn("s1", "bob")
	require.NoError(t, err)
	assert.True(t, turn)
}

func TestWorld_UnknownSession(t *testing.T) {
	w := NewWorld(nil)

	calls := map[string]func() error{
		"reset": func() error { return w.Reset("missing") },
		"start": func() error { return w.Start("missing") },
		"end":   func() error { return w.End("missing") },
		"next":  func() error { return w.NextGamer("missing") },
		"update": func() error {
			return w.SendUpdate("missing", "alice", []byte("u"))
		},
		"send": func() error {
			return w.SendMessage("missing", protocol.NewMessage("a", protocol.ToAll(), nil))
		},
		"turn": func() error {
			_, err := w.IsGamerTurn("missing", "alice")
			return err
		},
		"on": func() error {
			_, err := w.IsGameOn("missing")
			return err
		},
		"updates": func() error {
			_, err := w.PreviousRoundUpdates("missing")
			return err
		},
		"fetch": func() error {
			_, err := w.FetchAllMessages("missing", "alice")
			return err
		},
		"summary": func() error {
			_, err := w.Summary("missing")
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), mgerr.ErrUnknownSession)
			assert.Equal(t, 0, w.Len(), "registry must stay empty")
		})
	}
}

func TestWorld_JoinCreatesOnce(t *testing.T) {
	w := NewWorld(nil)
	w.Join("s1", "alice")
	w.Join("s1", "alice")
	w.Join("s2", "alice")

	assert.Equal(t, 2, w.Len())

	sum, err := w.Summary("s1")
	require.NoError(t, err)
	assert.Equal(t, []protocol.GamerID{"alice"}, sum.Gamers)
}

func TestWorld_UpdatesBeforeAnySubmission(t *testing.T) {
	w := NewWorld(nil)
	w.Join("s1", "alice")
	w.Join("s1", "bob")

	updates, err := w.PreviousRoundUpdates("s1")
	require.NoError(t, err)
	assert.Equal(t, map[protocol.GamerID][]byte{"alice": nil, "bob": nil}, updates)
}

func TestWorld_Messaging(t *testing.T) {
	w := NewWorld(nil)
	w.Join("s1", "alice")
	w.Join("s1", "bob")

	require.NoError(t, w.SendMessage("s1", protocol.NewMessage("alice", protocol.ToOne("bob"), []byte("hi"))))

	msgs, err := w.FetchAllMessages("s1", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].From)

	msgs, err = w.FetchAllMessages("s1", "bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = w.FetchAllMessages("s1", "carol")
	assert.ErrorIs(t, err, mgerr.ErrUnknownGamer)
}

func TestWorld_Summaries(t *testing.T) {
	w := NewWorld(nil)
	w.Join("beta", "x")
	w.Join("alpha", "y")

	sums := w.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "alpha", sums[0].ID)
	assert.Equal(t, "beta", sums[1].ID)
}

// TestWorld_ConcurrentBroadcasts checks that concurrent senders never
// lose or duplicate a message.
func TestWorld_ConcurrentBroadcasts(t *testing.T) {
	const senders, perSender = 8, 50

	w := NewWorld(nil)
	w.Join("s1", "sink")
	for i := 0; i < senders; i++ {
		w.Join("s1", fmt.Sprintf("g%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(from string) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				_ = w.SendMessage("s1", protocol.NewMessage(from, protocol.ToOne("sink"), []byte{byte(j)}))
			}
		}(fmt.Sprintf("g%d", i))
	}

	got := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		msgs, err := w.FetchAllMessages("s1", "sink")
		require.NoError(t, err)
		got += len(msgs)
		select {
		case <-done:
			msgs, err := w.FetchAllMessages("s1", "sink")
			require.NoError(t, err)
			got += len(msgs)
			assert.Equal(t, senders*perSender, got)
			return
		default:
		}
	}
}
