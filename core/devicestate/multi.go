package devicestate

import (
	"context"
	"errors"
)

// MultiStore fans one merge out to several stores, typically the in-memory
// store serving the read API plus the MQTT shadow publisher.
type MultiStore struct {
	stores []Store
}

// NewMultiStore creates a MultiStore over the given stores.
func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{stores: stores}
}

// Merge applies the update to every store and joins the errors. A failing
// store does not prevent the others from being updated.
func (m *MultiStore) Merge(ctx context.Context, deviceID string, fields Fields) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Merge(ctx, deviceID, fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
