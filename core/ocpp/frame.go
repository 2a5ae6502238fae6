package ocpp

import (
	"encoding/json"
	"fmt"
)

// MessageType is the numeric tag in the first element of an OCPP-J frame.
type MessageType int

const (
	// MessageTypeCall is a request initiated by either party.
	MessageTypeCall MessageType = 2
	// MessageTypeCallResult is a success reply correlated to a prior Call.
	MessageTypeCallResult MessageType = 3
	// MessageTypeCallError is a failure reply correlated to a prior Call.
	MessageTypeCallError MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "Call"
	case MessageTypeCallResult:
		return "CallResult"
	case MessageTypeCallError:
		return "CallError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Standard CallError codes from OCPP 2.0.1 appendix.
const (
	ErrorCodeNotImplemented        = "NotImplemented"
	ErrorCodeInternalError         = "InternalError"
	ErrorCodeFormationViolation    = "FormationViolation"
	ErrorCodeProtocolError         = "ProtocolError"
	ErrorCodePropertyConstraintErr = "PropertyConstraintViolation"
)

// Frame is the decoded form of one OCPP-J message. The Type field selects
// the variant; fields not belonging to the variant are zero. Classification
// must always go through Type, never through pointer or payload comparison.
type Frame struct {
	Type          MessageType
	CorrelationID string
	// Action is set only for Call frames. Replies carry no action on the
	// wire; the pending-command ledger recovers it.
	Action           string
	Payload          json.RawMessage
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// NewCall builds a Call frame. The payload must marshal to a JSON object.
func NewCall(correlationID, action string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal call payload: %w", err)
	}
	return Frame{Type: MessageTypeCall, CorrelationID: correlationID, Action: action, Payload: raw}, nil
}

// NewCallResult builds a CallResult frame answering the given correlation id.
func NewCallResult(correlationID string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal call result payload: %w", err)
	}
	return Frame{Type: MessageTypeCallResult, CorrelationID: correlationID, Payload: raw}, nil
}

// NewCallError builds a CallError frame answering the given correlation id.
func NewCallError(correlationID, code, description string) Frame {
	return Frame{
		Type:             MessageTypeCallError,
		CorrelationID:    correlationID,
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorDetails:     json.RawMessage(`{}`),
	}
}

// UnmarshalPayload decodes the frame payload into v.
func (f Frame) UnmarshalPayload(v any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("frame %s has no payload", f.CorrelationID)
	}
	return json.Unmarshal(f.Payload, v)
}
