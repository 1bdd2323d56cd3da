package protocol

import "fmt"

// RespKind tags a Response on the wire.
type RespKind uint8

const (
	KindOk RespKind = iota + 1
	KindError
	KindOkWithBool
	KindOkWithPreviousRoundUpdates
	KindOkWithMessages
)

func (k RespKind) String() string {
	switch k {
	case KindOk:
		return "Ok"
	case KindError:
		return "Error"
	case KindOkWithBool:
		return "OkWithBool"
	case KindOkWithPreviousRoundUpdates:
		return "OkWithPreviousRoundUpdates"
	case KindOkWithMessages:
		return "OkWithMessages"
	default:
		return fmt.Sprintf("RespKind(%d)", uint8(k))
	}
}

// Response is the server's answer to one Operation.
type Response interface {
	Kind() RespKind
	isResponse()
}

// Ok acknowledges an operation that has nothing to report.
type Ok struct{}

// Error rejects an operation.  Reason is informational only.
type Error struct {
	Reason string `msgpack:"reason,omitempty"`
}

type OkWithBool struct {
	Value bool `msgpack:"value"`
}

// OkWithPreviousRoundUpdates carries the latest update of every joined
// gamer; a nil slice means the gamer has not submitted one.
type OkWithPreviousRoundUpdates struct {
	Updates map[GamerID][]byte `msgpack:"updates"`
}

// OkWithMessages carries a drained mailbox in delivery order.
type OkWithMessages struct {
	Messages []Message `msgpack:"messages"`
}

func (Ok) Kind() RespKind                         { return KindOk }
func (Error) Kind() RespKind                      { return KindError }
func (OkWithBool) Kind() RespKind                 { return KindOkWithBool }
func (OkWithPreviousRoundUpdates) Kind() RespKind { return KindOkWithPreviousRoundUpdates }
func (OkWithMessages) Kind() RespKind             { return KindOkWithMessages }

func (Ok) isResponse()                         {}
func (Error) isResponse()                      {}
func (OkWithBool) isResponse()                 {}
func (OkWithPreviousRoundUpdates) isResponse() {}
func (OkWithMessages) isResponse()             {}

// Fail builds an Error response from err.
func Fail(err error) Error {
	if err == nil {
		return Error{}
	}
	return Error{Reason: err.Error()}
}
