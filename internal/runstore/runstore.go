package runstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("runstore: no projection stored")

// Snapshot is the outcome of the last projection run of an energy system.
// Payload is the JSON encoded projection result. A stored snapshot also
// marks the system as processed.
type Snapshot struct {
	ESID      string
	Title     string
	Payload   []byte
	CreatedAt time.Time
}

// Store persists snapshots and answers whether a system was processed.
type Store interface {
	IsProcessed(ctx context.Context, esID string) (bool, error)
	Save(ctx context.Context, s Snapshot) error
	Latest(ctx context.Context, esID string) (Snapshot, error)
	Reset(ctx context.Context, esID string) error
}

// Memory is a Store for a single process.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]Snapshot)}
}

func (m *Memory) IsProcessed(_ context.Context, esID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.snapshots[esID]
	return ok, nil
}

func (m *Memory) Save(_ context.Context, s Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.Payload = append([]byte(nil), s.Payload...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.ESID] = s
	return nil
}

func (m *Memory) Latest(_ context.Context, esID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[esID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Reset(_ context.Context, esID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, esID)
	return nil
}
