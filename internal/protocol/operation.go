package protocol

import "fmt"

// OpKind tags an Operation on the wire.
type OpKind uint8

const (
	KindJoinSession OpKind = iota + 1
	KindResetSession
	KindStartSession
	KindEndSession
	KindIsGamerTurn
	KindIsGameOn
	KindNextGamer
	KindSendUpdate
	KindGetPreviousRoundUpdates
	KindSendMessage
	KindFetchAllMessages
)

var opNames = map[OpKind]string{
	KindJoinSession:             "JoinSession",
	KindResetSession:            "ResetSession",
	KindStartSession:            "StartSession",
	KindEndSession:              "EndSession",
	KindIsGamerTurn:             "IsGamerTurn",
	KindIsGameOn:                "IsGameOn",
	KindNextGamer:               "NextGamer",
	KindSendUpdate:              "SendUpdate",
	KindGetPreviousRoundUpdates: "GetPreviousRoundUpdates",
	KindSendMessage:             "SendMessage",
	KindFetchAllMessages:        "FetchAllMessages",
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// OpKinds lists every operation kind in tag order.
func OpKinds() []OpKind {
	out := make([]OpKind, 0, len(opNames))
	for k := KindJoinSession; k <= KindFetchAllMessages; k++ {
		out = append(out, k)
	}
	return out
}

// Operation is a single client request.  Every variant addresses
// exactly one session.
type Operation interface {
	Kind() OpKind
	Target() SessionID
	isOperation()
}

type JoinSession struct {
	Session SessionID `msgpack:"session"`
	Gamer   GamerID   `msgpack:"gamer"`
}

type ResetSession struct {
	Session SessionID `msgpack:"session"`
}

type StartSession struct {
	Session SessionID `msgpack:"session"`
}

type EndSession struct {
	Session SessionID `msgpack:"session"`
}

type IsGamerTurn struct {
	Session SessionID `msgpack:"session"`
	Gamer   GamerID   `msgpack:"gamer"`
}

type IsGameOn struct {
	Session SessionID `msgpack:"session"`
}

type NextGamer struct {
	Session SessionID `msgpack:"session"`
}

// SendUpdate submits the gamer's round update.
type SendUpdate struct {
	Session SessionID `msgpack:"session"`
	Gamer   GamerID   `msgpack:"gamer"`
	Update  []byte    `msgpack:"update"`
}

// GetPreviousRoundUpdates asks for the latest update of every gamer.
type GetPreviousRoundUpdates struct {
	Session SessionID `msgpack:"session"`
}

type SendMessage struct {
	Session SessionID `msgpack:"session"`
	Message Message   `msgpack:"message"`
}

// FetchAllMessages drains the gamer's mailbox.
type FetchAllMessages struct {
	Session SessionID `msgpack:"session"`
	Gamer   GamerID   `msgpack:"gamer"`
}

func (JoinSession) Kind() OpKind             { return KindJoinSession }
func (ResetSession) Kind() OpKind            { return KindResetSession }
func (StartSession) Kind() OpKind            { return KindStartSession }
func (EndSession) Kind() OpKind              { return KindEndSession }
func (IsGamerTurn) Kind() OpKind             { return KindIsGamerTurn }
func (IsGameOn) Kind() OpKind                { return KindIsGameOn }
func (NextGamer) Kind() OpKind               { return KindNextGamer }
func (SendUpdate) Kind() OpKind              { return KindSendUpdate }
func (GetPreviousRoundUpdates) Kind() OpKind { return KindGetPreviousRoundUpdates }
func (SendMessage) Kind() OpKind             { return KindSendMessage }
func (FetchAllMessages) Kind() OpKind        { return KindFetchAllMessages }

func (o JoinSession) Target() SessionID             { return o.Session }
func (o ResetSession) Target() SessionID            { return o.Session }
func (o StartSession) Target() SessionID            { return o.Session }
func (o EndSession) Target() SessionID              { return o.Session }
func (o IsGamerTurn) Target() SessionID             { return o.Session }
func (o IsGameOn) Target() SessionID                { return o.Session }
func (o NextGamer) Target() SessionID               { return o.Session }
func (o SendUpdate) Target() SessionID              { return o.Session }
func (o GetPreviousRoundUpdates) Target() SessionID { return o.Session }
func (o SendMessage) Target() SessionID             { return o.Session }
func (o FetchAllMessages) Target() SessionID        { return o.Session }

func (JoinSession) isOperation()             {}
func (ResetSession) isOperation()            {}
func (StartSession) isOperation()            {}
func (EndSession) isOperation()              {}
func (IsGamerTurn) isOperation()             {}
func (IsGameOn) isOperation()                {}
func (NextGamer) isOperation()               {}
func (SendUpdate) isOperation()              {}
func (GetPreviousRoundUpdates) isOperation() {}
func (SendMessage) isOperation()             {}
func (FetchAllMessages) isOperation()        {}
