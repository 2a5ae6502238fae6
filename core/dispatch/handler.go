package dispatch

import (
	"context"
	"fmt"

	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// Result is the outcome of handling one inbound Call. Either a reply payload
// is owed to the device or the exchange is complete.
type Result struct {
	reply   bool
	payload any
}

// Reply produces a Result whose payload is sent back as a CallResult.
func Reply(payload any) Result { return Result{reply: true, payload: payload} }

// NoReply produces a Result that closes the exchange without a frame.
func NoReply() Result { return Result{} }

// HasReply reports whether a reply frame must be sent.
func (r Result) HasReply() bool { return r.reply }

// Payload returns the reply payload.
func (r Result) Payload() any { return r.payload }

// Handler processes one inbound Call for a device.
//
// A returned error is converted to a CallError at the dispatcher boundary so
// the device is never left waiting; handlers must not swallow validation
// failures silently.
type Handler interface {
	Handle(ctx context.Context, deviceID string, frame ocpp.Frame) (Result, error)
}

// ResultHandler interprets a reply frame after the pending-command ledger
// resolved its action. It never produces a frame: the protocol forbids
// responding to a response.
type ResultHandler interface {
	HandleResult(ctx context.Context, deviceID, action string, frame ocpp.Frame) error
}

// Fault is a handler failure with a protocol error code. The dispatcher maps
// it to a CallError with the carried code; plain errors map to InternalError.
type Fault struct {
	Code        string
	Description string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Description)
}

// NewValidationFault reports a payload that failed handler-specific validation.
func NewValidationFault(format string, args ...any) *Fault {
	return &Fault{Code: ocpp.ErrorCodeFormationViolation, Description: fmt.Sprintf(format, args...)}
}
