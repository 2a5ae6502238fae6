package dispatch

import (
	"time"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// DefaultRegistry wires the standard inbound handlers.
func DefaultRegistry(store devicestate.Store, heartbeatInterval time.Duration, log logger.Logger) *Registry {
	return NewRegistry(map[string]Handler{
		ocpp.ActionBootNotification:   NewBootNotificationHandler(store, heartbeatInterval, log),
		ocpp.ActionHeartbeat:          NewHeartbeatHandler(),
		ocpp.ActionStatusNotification: NewStatusNotificationHandler(),
		ocpp.ActionTransactionEvent:   NewTransactionEventHandler(store, log),
	})
}

// DefaultResultHandlers maps command actions to the given interpreter. The
// same interpreter also serves as the dispatcher's default, so replies to
// future command types still get recorded.
func DefaultResultHandlers(h *CommandResultHandler) map[string]ResultHandler {
	return map[string]ResultHandler{
		ocpp.ActionRequestStartTransaction: h,
		ocpp.ActionRequestStopTransaction:  h,
	}
}
