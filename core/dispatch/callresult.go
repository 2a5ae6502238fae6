package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	"github.com/voltbridge/ocpp-gateway/core/events"
	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
	"github.com/voltbridge/ocpp-gateway/internal/eventbus"
)

// CommandStatusAccepted is the status a device reports when it takes a
// RequestStart/RequestStop command.
const CommandStatusAccepted = "Accepted"

type commandResultPayload struct {
	Status string `json:"status"`
}

// CommandResultHandler interprets replies to commands the backend issued.
// It never produces a frame. Registered per action for start and stop, and
// as the default interpreter for everything else.
type CommandResultHandler struct {
	store devicestate.Store
	log   logger.Logger
	bus   eventbus.EventBus
	now   func() time.Time
}

// NewCommandResultHandler creates the handler.
func NewCommandResultHandler(store devicestate.Store, bus eventbus.EventBus, log logger.Logger) *CommandResultHandler {
	return &CommandResultHandler{store: store, log: log, bus: bus, now: time.Now}
}

func (h *CommandResultHandler) HandleResult(ctx context.Context, deviceID, action string, frame ocpp.Frame) error {
	now := h.now().UTC().Format(time.RFC3339)

	if frame.Type == ocpp.MessageTypeCallError {
		h.log.Warnf("device %s rejected %s (id %s): %s %s", deviceID, action, frame.CorrelationID, frame.ErrorCode, frame.ErrorDescription)
		h.publish(events.CommandResolved{
			DeviceID:      deviceID,
			CorrelationID: frame.CorrelationID,
			Action:        action,
			Accepted:      false,
			Err:           fmt.Errorf("%s: %s", frame.ErrorCode, frame.ErrorDescription),
		})
		return h.store.Merge(ctx, deviceID, devicestate.Fields{
			"lastCommandResult": map[string]any{
				"messageId":  frame.CorrelationID,
				"action":     action,
				"errorCode":  frame.ErrorCode,
				"receivedAt": now,
			},
		})
	}

	var res commandResultPayload
	if err := frame.UnmarshalPayload(&res); err != nil {
		h.publish(events.CommandResolved{
			DeviceID:      deviceID,
			CorrelationID: frame.CorrelationID,
			Action:        action,
			Accepted:      false,
			Err:           err,
		})
		return NewValidationFault("command result payload: %v", err)
	}
	accepted := res.Status == CommandStatusAccepted
	if accepted {
		h.log.Infof("device %s accepted %s (id %s)", deviceID, action, frame.CorrelationID)
	} else {
		h.log.Warnf("device %s rejected %s (id %s): status %q", deviceID, action, frame.CorrelationID, res.Status)
	}
	h.publish(events.CommandResolved{DeviceID: deviceID, CorrelationID: frame.CorrelationID, Action: action, Accepted: accepted})

	fields := devicestate.Fields{
		"lastCommandResult": map[string]any{
			"messageId":  frame.CorrelationID,
			"action":     action,
			"status":     res.Status,
			"receivedAt": now,
		},
	}
	if accepted {
		switch action {
		case ocpp.ActionRequestStartTransaction:
			fields["currentTransaction"] = map[string]any{
				"status":    "Started",
				"startTime": now,
			}
		case ocpp.ActionRequestStopTransaction:
			fields["currentTransaction"] = map[string]any{
				"status":   "Stopped",
				"stopTime": now,
			}
		}
	}
	return h.store.Merge(ctx, deviceID, fields)
}

func (h *CommandResultHandler) publish(e eventbus.Event) {
	if h.bus != nil {
		h.bus.Publish(e)
	}
}
