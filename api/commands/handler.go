// Package commands exposes the remote command trigger API: operator-facing
// endpoints that issue RequestStartTransaction and RequestStopTransaction
// Calls to charge points.
package commands

import (
	"encoding/json"
	"net/http"

	"github.com/voltbridge/ocpp-gateway/core/command"
	"github.com/voltbridge/ocpp-gateway/core/logger"
)

type startRequest struct {
	ChargePointID string `json:"chargePointId"`
	IDTag         string `json:"idTag,omitempty"`
	ConnectorID   int    `json:"connectorId,omitempty"`
}

type stopRequest struct {
	ChargePointID string `json:"chargePointId"`
	TransactionID string `json:"transactionId"`
}

type commandResponse struct {
	Message       string `json:"message"`
	MessageID     string `json:"messageId"`
	ChargePointID string `json:"chargePointId"`
	TransactionID string `json:"transactionId,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewStartHandler returns an HTTP handler for POST /api/commands/start.
func NewStartHandler(sender *command.Sender, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		if req.ChargePointID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required parameter: chargePointId"})
			return
		}
		id, err := sender.RequestStart(r.Context(), req.ChargePointID, req.IDTag, req.ConnectorID)
		if err != nil {
			log.Errorf("start command for %s: %v", req.ChargePointID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to send command: " + err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, commandResponse{
			Message:       "RequestStartTransaction command sent successfully",
			MessageID:     id,
			ChargePointID: req.ChargePointID,
		})
	})
}

// NewStopHandler returns an HTTP handler for POST /api/commands/stop.
func NewStopHandler(sender *command.Sender, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req stopRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		if req.ChargePointID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required parameter: chargePointId"})
			return
		}
		if req.TransactionID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required parameter: transactionId"})
			return
		}
		id, err := sender.RequestStop(r.Context(), req.ChargePointID, req.TransactionID)
		if err != nil {
			log.Errorf("stop command for %s: %v", req.ChargePointID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to send command: " + err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, commandResponse{
			Message:       "RequestStopTransaction command sent successfully",
			MessageID:     id,
			ChargePointID: req.ChargePointID,
			TransactionID: req.TransactionID,
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
