package dispatch

import (
	"context"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

type heartbeatResponse struct {
	CurrentTime string `json:"currentTime"`
}

// HeartbeatHandler answers heartbeats with the current UTC time. Stateless.
type HeartbeatHandler struct {
	now func() time.Time
}

// NewHeartbeatHandler creates the handler.
func NewHeartbeatHandler() *HeartbeatHandler {
	return &HeartbeatHandler{now: time.Now}
}

func (h *HeartbeatHandler) Handle(context.Context, string, ocpp.Frame) (Result, error) {
	return Reply(heartbeatResponse{CurrentTime: h.now().UTC().Format(time.RFC3339)}), nil
}
