// Package devicestate holds the last-known-reported state of each charge
// point, updated through field-level merge documents.
package devicestate

import "context"

// Fields is one partial update: field-level merge, a nil value clears the
// field. Values must be JSON-marshalable.
type Fields map[string]any

// Store applies partial state updates keyed by device identity.
type Store interface {
	// Merge reports the given fields for the device. Concurrent merges for
	// the same device may interleave; last write wins per field.
	Merge(ctx context.Context, deviceID string, fields Fields) error
}
