package devicestate

import (
	"context"
	"sync"
)

// MemoryStore keeps reported state in process memory. It backs the device
// state read API and the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Fields
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Fields{}}
}

func (s *MemoryStore) Merge(_ context.Context, deviceID string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[deviceID]
	if !ok {
		st = Fields{}
		s.data[deviceID] = st
	}
	for k, v := range fields {
		if v == nil {
			delete(st, k)
			continue
		}
		st[k] = v
	}
	return nil
}

// Get returns a copy of the reported state for the device.
func (s *MemoryStore) Get(deviceID string) (Fields, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[deviceID]
	if !ok {
		return nil, false
	}
	cp := make(Fields, len(st))
	for k, v := range st {
		cp[k] = v
	}
	return cp, true
}

// List returns the identities of all devices that have reported state.
func (s *MemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids
}
