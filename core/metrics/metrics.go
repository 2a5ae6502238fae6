package metrics

import (
	"time"

	"github.com/voltbridge/ocpp-gateway/core/ocpp"
)

// Frame outcomes recorded per dispatch.
const (
	OutcomeReplied    = "replied"
	OutcomeNoReply    = "no_reply"
	OutcomeErrorReply = "error_reply"
	OutcomeResolved   = "resolved"
	OutcomeDropped    = "dropped"
	OutcomeMalformed  = "malformed"
)

// FrameEvent is one processed inbound frame.
type FrameEvent struct {
	DeviceID string
	Type     ocpp.MessageType
	Action   string
	Outcome  string
	Latency  time.Duration
	Time     time.Time
}

// CommandEvent is one remote command issued to a device.
type CommandEvent struct {
	DeviceID string
	Action   string
	Sent     bool
	Time     time.Time
}

// ResolutionEvent is one device reply matched to a pending command.
type ResolutionEvent struct {
	DeviceID string
	Action   string
	Accepted bool
	Time     time.Time
}

// Sink records gateway activity for observability purposes.
type Sink interface {
	RecordFrame(ev FrameEvent) error
	RecordCommand(ev CommandEvent) error
}

// CommandResolutionRecorder is an optional sink capability for recording
// command resolutions observed on the event bus.
type CommandResolutionRecorder interface {
	RecordResolution(ev ResolutionEvent) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordFrame(FrameEvent) error     { return nil }
func (NopSink) RecordCommand(CommandEvent) error { return nil }
