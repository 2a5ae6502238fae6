// Package events defines the typed events the gateway publishes on the
// internal bus for observability consumers.
package events

import (
	"time"

	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// FrameReceived is published for every decoded inbound frame.
type FrameReceived struct {
	DeviceID      string
	CorrelationID string
	Type          ocpp.MessageType
	Action        string
	Time          time.Time
}

// ReplySent is published after a reply frame is handed to the outbound channel.
type ReplySent struct {
	DeviceID      string
	CorrelationID string
	Type          ocpp.MessageType
	Action        string
}

// ReplyDropped is published when an inbound reply frame had no matching
// pending command (unknown or already resolved correlation id).
type ReplyDropped struct {
	DeviceID      string
	CorrelationID string
	Reason        string
}

// CommandIssued is published when a remote command is sent to a device.
type CommandIssued struct {
	DeviceID      string
	CorrelationID string
	Action        string
	ExpiresAt     time.Time
}

// CommandResolved is published when a device reply is matched to a pending
// command.
type CommandResolved struct {
	DeviceID      string
	CorrelationID string
	Action        string
	Accepted      bool
	Err           error
}
