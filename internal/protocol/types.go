// Package protocol defines the request/response vocabulary spoken
// between minignet clients and the coordination server, and the codec
// that puts it on the wire.
//
// Operation and Response are closed sum types: each variant is a
// struct in this package and the set is sealed by an unexported
// marker method, so consumers dispatch with an exhaustive type switch.
package protocol

import "fmt"

// SessionID names a session.  Compared byte-wise, never normalised.
type SessionID = string

// GamerID names a participant within a session.
type GamerID = string

// AddressKind selects the recipients of a Message.
type AddressKind uint8

const (
	// AddressAll delivers to every joined gamer except the sender.
	AddressAll AddressKind = iota + 1
	// AddressOne delivers to exactly one gamer.
	AddressOne
)

func (k AddressKind) String() string {
	switch k {
	case AddressAll:
		return "all"
	case AddressOne:
		return "one"
	default:
		return fmt.Sprintf("address(%d)", uint8(k))
	}
}

// Address is the recipient part of a Message.
type Address struct {
	Kind  AddressKind `msgpack:"kind"`
	Gamer GamerID     `msgpack:"gamer,omitempty"`
}

// ToAll addresses every other gamer in the session.
func ToAll() Address { return Address{Kind: AddressAll} }

// ToOne addresses a single gamer.
func ToOne(gamer GamerID) Address { return Address{Kind: AddressOne, Gamer: gamer} }

// IsAll reports whether a is a broadcast address.
func (a Address) IsAll() bool { return a.Kind == AddressAll }

func (a Address) String() string {
	if a.Kind == AddressOne {
		return "one(" + a.Gamer + ")"
	}
	return a.Kind.String()
}

// Message is an opaque payload routed between gamers of one session.
type Message struct {
	From    GamerID `msgpack:"from"`
	To      Address `msgpack:"to"`
	Payload []byte  `msgpack:"payload"`
}

// NewMessage builds a Message; the payload is retained, not copied.
func NewMessage(from GamerID, to Address, payload []byte) Message {
	return Message{From: from, To: to, Payload: payload}
}

// Validate checks the address tag.  Payload content is never examined.
func (m Message) Validate() error {
	switch m.To.Kind {
	case AddressAll, AddressOne:
		return nil
	default:
		return fmt.Errorf("message address: unknown kind %d", uint8(m.To.Kind))
	}
}
