package dispatch

import (
	"context"

	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// UnsupportedActionHandler answers Calls whose action has no registered
// handler. It always faults with NotImplemented so the sender is never left
// without a reply.
type UnsupportedActionHandler struct {
	log logger.Logger
}

// NewUnsupportedActionHandler creates the handler.
func NewUnsupportedActionHandler(log logger.Logger) *UnsupportedActionHandler {
	return &UnsupportedActionHandler{log: log}
}

func (h *UnsupportedActionHandler) Handle(_ context.Context, deviceID string, frame ocpp.Frame) (Result, error) {
	h.log.Warnf("unsupported action %q from %s (id %s)", frame.Action, deviceID, frame.CorrelationID)
	return Result{}, &Fault{
		Code:        ocpp.ErrorCodeNotImplemented,
		Description: "action " + frame.Action + " is not implemented",
	}
}
