package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	mgerr "minignet/internal/errors"
)

// emptyMap is msgpack's fixmap header with zero entries.
const emptyMap = 0x80

// envelope is the outer wire shape of both unions: a numeric tag and
// the msgpack-encoded variant.  Variants without fields omit the body.
type envelope struct {
	Kind uint8              `msgpack:"kind"`
	Body msgpack.RawMessage `msgpack:"body,omitempty"`
}

// EncodeOperation serialises op.
func EncodeOperation(op Operation) ([]byte, error) {
	if op == nil {
		return nil, fmt.Errorf("encode operation: nil")
	}
	return encode(uint8(op.Kind()), op)
}

// DecodeOperation parses a complete request.  Every failure wraps
// [mgerr.ErrDecode].
func DecodeOperation(data []byte) (Operation, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	var op Operation
	switch OpKind(env.Kind) {
	case KindJoinSession:
		op, err = decodeAs[JoinSession](env.Body)
	case KindResetSession:
		op, err = decodeAs[ResetSession](env.Body)
	case KindStartSession:
		op, err = decodeAs[StartSession](env.Body)
	case KindEndSession:
		op, err = decodeAs[EndSession](env.Body)
	case KindIsGamerTurn:
		op, err = decodeAs[IsGamerTurn](env.Body)
	case KindIsGameOn:
		op, err = decodeAs[IsGameOn](env.Body)
	case KindNextGamer:
		op, err = decodeAs[NextGamer](env.Body)
	case KindSendUpdate:
		op, err = decodeAs[SendUpdate](env.Body)
	case KindGetPreviousRoundUpdates:
		op, err = decodeAs[GetPreviousRoundUpdates](env.Body)
	case KindSendMessage:
		var sm SendMessage
		if sm, err = decodeAs[SendMessage](env.Body); err == nil {
			err = sm.Message.Validate()
		}
		op = sm
	case KindFetchAllMessages:
		op, err = decodeAs[FetchAllMessages](env.Body)
	default:
		return nil, fmt.Errorf("%w: unknown operation tag %d", mgerr.ErrDecode, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", mgerr.ErrDecode, OpKind(env.Kind), err)
	}
	return op, nil
}

// EncodeResponse serialises resp.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("encode response: nil")
	}
	return encode(uint8(resp.Kind()), resp)
}

// DecodeResponse parses a complete response.
func DecodeResponse(data []byte) (Response, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	var resp Response
	switch RespKind(env.Kind) {
	case KindOk:
		resp = Ok{}
	case KindError:
		resp, err = decodeAs[Error](env.Body)
	case KindOkWithBool:
		resp, err = decodeAs[OkWithBool](env.Body)
	case KindOkWithPreviousRoundUpdates:
		resp, err = decodeAs[OkWithPreviousRoundUpdates](env.Body)
	case KindOkWithMessages:
		resp, err = decodeAs[OkWithMessages](env.Body)
	default:
		return nil, fmt.Errorf("%w: unknown response tag %d", mgerr.ErrDecode, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", mgerr.ErrDecode, RespKind(env.Kind), err)
	}
	return resp, nil
}

// ── helpers ──────────────────────────────────────────────────────────

func encode(kind uint8, v any) ([]byte, error) {
	env := envelope{Kind: kind}

	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	// Fieldless variants encode as an empty map; leave the body out.
	if !(len(body) == 1 && body[0] == emptyMap) {
		env.Body = body
	}

	data, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if len(data) == 0 {
		return env, fmt.Errorf("%w: empty input", mgerr.ErrDecode)
	}
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", mgerr.ErrDecode, err)
	}
	return env, nil
}

func decodeAs[T any](body []byte) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	err := msgpack.Unmarshal(body, &v)
	return v, err
}
