// Package ledger tracks commands sent to charge points that still await a
// reply. CallResult and CallError frames carry no action name on the wire, so
// the entry recorded at send time is the only way to interpret them.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateCorrelationID reports an attempt to record a correlation id that
// is already pending. Correlation ids must be unique while in flight; a
// collision indicates an id-generation bug and the command must not be sent.
var ErrDuplicateCorrelationID = errors.New("correlation id already pending")

// Entry describes one command awaiting a reply.
type Entry struct {
	CorrelationID string    `json:"correlationId"`
	DeviceID      string    `json:"deviceId"`
	Action        string    `json:"action"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Ledger is the pending-command correlation table.
//
// Resolve is the idempotency point for the whole gateway: under at-least-once
// delivery the same CallResult can arrive twice, and the second Resolve
// returning false is what prevents a second side effect.
type Ledger interface {
	// Record inserts an entry for a freshly issued command. It fails with
	// ErrDuplicateCorrelationID if the id is pending for any device.
	Record(ctx context.Context, e Entry) error

	// Resolve atomically fetches and removes the entry for the id. The second
	// call for the same id reports found=false.
	Resolve(ctx context.Context, correlationID string) (e Entry, found bool, err error)

	// Expire purges entries whose ExpiresAt is before now. Backends with
	// native key expiry may implement it as a no-op. Invoked by an external
	// scheduler, never by the dispatcher.
	Expire(ctx context.Context, now time.Time) (int, error)
}
