package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// Transaction event types from OCPP 2.0.1.
const (
	TransactionEventStarted = "Started"
	TransactionEventUpdated = "Updated"
	TransactionEventEnded   = "Ended"
)

type transactionEventPayload struct {
	EventType       string `json:"eventType"`
	Timestamp       string `json:"timestamp"`
	StoppedReason   string `json:"stoppedReason,omitempty"`
	TransactionInfo struct {
		TransactionID string `json:"transactionId"`
		StartTime     string `json:"startTime,omitempty"`
	} `json:"transactionInfo"`
	Evse struct {
		ID int `json:"id"`
	} `json:"evse"`
	IDToken json.RawMessage `json:"idToken,omitempty"`
}

// TransactionEventHandler reports transaction lifecycle changes into the
// device state store. The reply is an empty object whatever happens; store
// failures are logged, not surfaced to the device.
type TransactionEventHandler struct {
	store devicestate.Store
	log   logger.Logger
	now   func() time.Time
}

// NewTransactionEventHandler creates the handler.
func NewTransactionEventHandler(store devicestate.Store, log logger.Logger) *TransactionEventHandler {
	return &TransactionEventHandler{store: store, log: log, now: time.Now}
}

func (h *TransactionEventHandler) Handle(ctx context.Context, deviceID string, frame ocpp.Frame) (Result, error) {
	var ev transactionEventPayload
	if err := frame.UnmarshalPayload(&ev); err != nil {
		return Result{}, NewValidationFault("transaction event payload: %v", err)
	}
	if ev.EventType == "" {
		return Result{}, NewValidationFault("transaction event requires eventType")
	}

	fields := devicestate.Fields{
		"lastTransactionEvent": map[string]any{
			"eventType":     ev.EventType,
			"timestamp":     ev.Timestamp,
			"transactionId": ev.TransactionInfo.TransactionID,
			"receivedAt":    h.now().UTC().Format(time.RFC3339),
		},
	}
	switch ev.EventType {
	case TransactionEventStarted:
		active := map[string]any{
			"transactionId": ev.TransactionInfo.TransactionID,
			"startTime":     ev.Timestamp,
			"evseId":        ev.Evse.ID,
		}
		if len(ev.IDToken) > 0 {
			active["idToken"] = ev.IDToken
		}
		fields["activeTransaction"] = active
	case TransactionEventEnded:
		fields["activeTransaction"] = nil
		fields["lastCompletedTransaction"] = map[string]any{
			"transactionId": ev.TransactionInfo.TransactionID,
			"startTime":     ev.TransactionInfo.StartTime,
			"stopTime":      ev.Timestamp,
			"stoppedReason": ev.StoppedReason,
		}
	}

	if err := h.store.Merge(ctx, deviceID, fields); err != nil {
		h.log.Errorf("merge transaction event for %s: %v", deviceID, err)
	}
	return Reply(struct{}{}), nil
}
