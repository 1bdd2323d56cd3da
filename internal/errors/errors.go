// Package errors provides domain-specific error types for minignet.
//
// Session and registry failures are reported through sentinels so the
// transport layer can classify them with errors.Is; network and
// configuration failures carry structured context the way the CLI
// needs it for diagnostics.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrUnknownSession     = errors.New("unknown session")
	ErrUnknownGamer       = errors.New("unknown gamer")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrNoGamers           = errors.New("session has no gamers")
	ErrDecode             = errors.New("malformed payload")
	ErrRequestTooLarge    = errors.New("request too large")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrNotConnected       = errors.New("not connected")
)

// ── Structured error types ───────────────────────────────────────────

// TransitionError reports a lifecycle operation attempted from a state
// that does not allow it.
type TransitionError struct {
	Op    string // "start", "end"
	State string // state the session was in
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s session in %s state", e.Op, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// RemoteError is what a client sees when the server answered Error.
type RemoteError struct {
	Op     string // operation kind that was rejected
	Reason string // server-provided explanation, may be empty
}

func (e *RemoteError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("server rejected %s", e.Op)
	}
	return fmt.Sprintf("server rejected %s: %s", e.Op, e.Reason)
}

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op   string // operation: "dial", "listen", "accept", "write", "read"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag name
	Value   interface{} // the invalid value (nil if missing)
	Message string
	Hint    string // optional
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// Transition creates a TransitionError for op attempted in state.
func Transition(op, state string) *TransitionError {
	return &TransitionError{Op: op, State: state}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRemote reports whether err came from an Error response rather than
// from the transport or the codec.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
