package server

import (
	"minignet/internal/game"
	"minignet/internal/protocol"
)

// Dispatch applies op to world and builds the response.  Every failure
// becomes an Error response; no failure leaves partial state behind.
func Dispatch(world *game.World, op protocol.Operation) protocol.Response {
	switch o := op.(type) {
	case protocol.JoinSession:
		world.Join(o.Session, o.Gamer)
		return protocol.Ok{}

	case protocol.ResetSession:
		return ack(world.Reset(o.Session))

	case protocol.StartSession:
		return ack(world.Start(o.Session))

	case protocol.EndSession:
		return ack(world.End(o.Session))

	case protocol.IsGamerTurn:
		turn, err := world.IsGamerTurn(o.Session, o.Gamer)
		if err != nil {
			return protocol.Fail(err)
		}
		return protocol.OkWithBool{Value: turn}

	case protocol.IsGameOn:
		on, err := world.IsGameOn(o.Session)
		if err != nil {
			return protocol.Fail(err)
		}
		return protocol.OkWithBool{Value: on}

	case protocol.NextGamer:
		return ack(world.NextGamer(o.Session))

	case protocol.SendUpdate:
		return ack(world.SendUpdate(o.Session, o.Gamer, o.Update))

	case protocol.GetPreviousRoundUpdates:
		updates, err := world.PreviousRoundUpdates(o.Session)
		if err != nil {
			return protocol.Fail(err)
		}
		return protocol.OkWithPreviousRoundUpdates{Updates: updates}

	case protocol.SendMessage:
		return ack(world.SendMessage(o.Session, o.Message))

	case protocol.FetchAllMessages:
		msgs, err := world.FetchAllMessages(o.Session, o.Gamer)
		if err != nil {
			return protocol.Fail(err)
		}
		return protocol.OkWithMessages{Messages: msgs}

	default:
		return protocol.Error{Reason: "unsupported operation"}
	}
}

func ack(err error) protocol.Response {
	if err != nil {
		return protocol.Fail(err)
	}
	return protocol.Ok{}
}
