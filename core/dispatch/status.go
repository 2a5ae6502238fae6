package dispatch

import (
	"context"

	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// StatusNotificationHandler acknowledges status notifications. The 2.0.1
// response carries no fields; connector state is not tracked yet.
type StatusNotificationHandler struct{}

// NewStatusNotificationHandler creates the handler.
func NewStatusNotificationHandler() *StatusNotificationHandler {
	return &StatusNotificationHandler{}
}

func (h *StatusNotificationHandler) Handle(context.Context, string, ocpp.Frame) (Result, error) {
	return Reply(struct{}{}), nil
}
