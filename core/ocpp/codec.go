package ocpp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame reports raw input that cannot be decoded into any of the
// three OCPP-J variants. No reply is possible for such input because the
// correlation id may itself be unreadable.
var ErrMalformedFrame = errors.New("malformed ocpp frame")

// Decode parses a raw OCPP-J array into a Frame.
//
// Wire shapes:
//
//	[2, "<id>", "<action>", {...}]
//	[3, "<id>", {...}]
//	[4, "<id>", "<code>", "<description>", {...}]
func Decode(raw []byte) (Frame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(elems) < 3 {
		return Frame{}, fmt.Errorf("%w: %d elements", ErrMalformedFrame, len(elems))
	}

	var tag int
	if err := json.Unmarshal(elems[0], &tag); err != nil {
		return Frame{}, fmt.Errorf("%w: non-numeric message type", ErrMalformedFrame)
	}
	var id string
	if err := json.Unmarshal(elems[1], &id); err != nil || id == "" {
		return Frame{}, fmt.Errorf("%w: missing correlation id", ErrMalformedFrame)
	}

	switch MessageType(tag) {
	case MessageTypeCall:
		if len(elems) != 4 {
			return Frame{}, fmt.Errorf("%w: call needs 4 elements, got %d", ErrMalformedFrame, len(elems))
		}
		var action string
		if err := json.Unmarshal(elems[2], &action); err != nil || action == "" {
			return Frame{}, fmt.Errorf("%w: missing action", ErrMalformedFrame)
		}
		return Frame{Type: MessageTypeCall, CorrelationID: id, Action: action, Payload: elems[3]}, nil
	case MessageTypeCallResult:
		if len(elems) != 3 {
			return Frame{}, fmt.Errorf("%w: call result needs 3 elements, got %d", ErrMalformedFrame, len(elems))
		}
		return Frame{Type: MessageTypeCallResult, CorrelationID: id, Payload: elems[2]}, nil
	case MessageTypeCallError:
		if len(elems) != 5 {
			return Frame{}, fmt.Errorf("%w: call error needs 5 elements, got %d", ErrMalformedFrame, len(elems))
		}
		var code, desc string
		if err := json.Unmarshal(elems[2], &code); err != nil {
			return Frame{}, fmt.Errorf("%w: bad error code", ErrMalformedFrame)
		}
		if err := json.Unmarshal(elems[3], &desc); err != nil {
			return Frame{}, fmt.Errorf("%w: bad error description", ErrMalformedFrame)
		}
		return Frame{Type: MessageTypeCallError, CorrelationID: id, ErrorCode: code, ErrorDescription: desc, ErrorDetails: elems[4]}, nil
	default:
		return Frame{}, fmt.Errorf("%w: unknown message type %d", ErrMalformedFrame, tag)
	}
}

// Encode serializes a Frame into its OCPP-J array form.
func Encode(f Frame) ([]byte, error) {
	payload := f.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	switch f.Type {
	case MessageTypeCall:
		return json.Marshal([]any{int(MessageTypeCall), f.CorrelationID, f.Action, payload})
	case MessageTypeCallResult:
		return json.Marshal([]any{int(MessageTypeCallResult), f.CorrelationID, payload})
	case MessageTypeCallError:
		details := f.ErrorDetails
		if len(details) == 0 {
			details = json.RawMessage(`{}`)
		}
		return json.Marshal([]any{int(MessageTypeCallError), f.CorrelationID, f.ErrorCode, f.ErrorDescription, details})
	default:
		return nil, fmt.Errorf("encode: unknown message type %d", int(f.Type))
	}
}
