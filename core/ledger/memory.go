package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps pending entries in process memory. Suitable for tests
// and single-node runs; multi-worker deployments need the Redis backend.
type MemoryLedger struct {
	mu   sync.Mutex
	data map[string]Entry
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{data: map[string]Entry{}}
}

func (l *MemoryLedger) Record(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.data[e.CorrelationID]; exists {
		return ErrDuplicateCorrelationID
	}
	l.data[e.CorrelationID] = e
	return nil
}

func (l *MemoryLedger) Resolve(_ context.Context, correlationID string) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.data[correlationID]
	if !ok {
		return Entry{}, false, nil
	}
	delete(l.data, correlationID)
	return e, true, nil
}

func (l *MemoryLedger) Expire(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for id, e := range l.data {
		if e.ExpiresAt.Before(now) {
			delete(l.data, id)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of pending entries.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data)
}
