package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minignet/internal/game"
	"minignet/internal/protocol"
)

// TestDispatch_ResponseShapes checks which response variant each
// operation answers with on success.
func TestDispatch_ResponseShapes(t *testing.T) {
	w := game.NewWorld(nil)
	Dispatch(w, protocol.JoinSession{Session: "s", Gamer: "g"})

	tests := []struct {
		op   protocol.Operation
		want protocol.RespKind
	}{
		{protocol.JoinSession{Session: "s", Gamer: "h"}, protocol.KindOk},
		{protocol.StartSession{Session: "s"}, protocol.KindOk},
		{protocol.IsGamerTurn{Session: "s", Gamer: "g"}, protocol.KindOkWithBool},
		{protocol.IsGameOn{Session: "s"}, protocol.KindOkWithBool},
		{protocol.NextGamer{Session: "s"}, protocol.KindOk},
		{protocol.SendUpdate{Session: "s", Gamer: "g", Update: []byte("u")}, protocol.KindOk},
		{protocol.GetPreviousRoundUpdates{Session: "s"}, protocol.KindOkWithPreviousRoundUpdates},
		{protocol.SendMessage{Session: "s", Message: protocol.NewMessage("g", protocol.ToAll(), nil)}, protocol.KindOk},
		{protocol.FetchAllMessages{Session: "s", Gamer: "h"}, protocol.KindOkWithMessages},
		{protocol.EndSession{Session: "s"}, protocol.KindOk},
		{protocol.ResetSession{Session: "s"}, protocol.KindOk},
	}
	for _, tt := range tests {
		t.Run(tt.op.Kind().String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Dispatch(w, tt.op).Kind())
		})
	}
}

// TestDispatch_InvalidTransitionIsAnError pins down that rejected
// lifecycle moves are reported, not acknowledged.
func TestDispatch_InvalidTransitionIsAnError(t *testing.T) {
	w := game.NewWorld(nil)
	Dispatch(w, protocol.JoinSession{Session: "s", Gamer: "g"})

	resp := Dispatch(w, protocol.EndSession{Session: "s"})
	e, ok := resp.(protocol.Error)
	if assert.True(t, ok, "got %#v", resp) {
		assert.Contains(t, e.Reason, "end")
	}

	on := Dispatch(w, protocol.IsGameOn{Session: "s"})
	assert.Equal(t, protocol.OkWithBool{Value: false}, on)
}

func TestServer_PanicBecomesError(t *testing.T) {
	srv := New(nil, Options{}, nil, nil) // nil world panics on use

	resp := srv.handle(srv.logger, protocol.IsGameOn{Session: "s"})
	e, ok := resp.(protocol.Error)
	if assert.True(t, ok, "got %#v", resp) {
		assert.Contains(t, e.Reason, "internal error")
	}
}
