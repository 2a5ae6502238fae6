package dispatch

import (
	"context"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// DefaultHeartbeatInterval is returned to devices that boot without a
// configured interval.
const DefaultHeartbeatInterval = 10 * time.Second

// RegistrationStatusAccepted is the only registration status issued in the
// current scope; acceptance policy is an extension point.
const RegistrationStatusAccepted = "Accepted"

type bootNotificationResponse struct {
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
	Status      string `json:"status"`
}

// BootNotificationHandler reports boot info into the device state store and
// accepts the device.
type BootNotificationHandler struct {
	store    devicestate.Store
	interval time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewBootNotificationHandler creates the handler. A non-positive interval
// falls back to DefaultHeartbeatInterval.
func NewBootNotificationHandler(store devicestate.Store, interval time.Duration, log logger.Logger) *BootNotificationHandler {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &BootNotificationHandler{store: store, interval: interval, log: log, now: time.Now}
}

func (h *BootNotificationHandler) Handle(ctx context.Context, deviceID string, frame ocpp.Frame) (Result, error) {
	var info map[string]any
	if err := frame.UnmarshalPayload(&info); err != nil {
		return Result{}, NewValidationFault("boot payload is not an object: %v", err)
	}

	// State-store failures are logged, not surfaced: the device still gets
	// its acceptance so it can start heartbeating.
	if err := h.store.Merge(ctx, deviceID, devicestate.Fields{"bootInfo": info}); err != nil {
		h.log.Errorf("merge boot info for %s: %v", deviceID, err)
	}

	return Reply(bootNotificationResponse{
		CurrentTime: h.now().UTC().Format(time.RFC3339),
		Interval:    int(h.interval.Seconds()),
		Status:      RegistrationStatusAccepted,
	}), nil
}
