package store

import (
	"context"
	"errors"
	"sync"

	"github.com/alexanderramin/custodian/internal/domain"
)

// MemoryBackend keeps deep copies of saved snapshots in memory. It backs
// simulated runs and tests.
type MemoryBackend struct {
	mu        sync.Mutex
	committed *Snapshot
	temporal  *Snapshot
	log       []*domain.LogEntry

	// SaveErr, when set, fails every Save.
	SaveErr error
}

func NewMemoryBackend(initial *Snapshot) *MemoryBackend {
	b := &MemoryBackend{}
	if initial != nil {
		b.committed = Clone(initial)
	}
	return b
}

func (b *MemoryBackend) Load(_ context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.committed == nil {
		return nil, errors.New("memory backend: no committed snapshot")
	}
	return Clone(b.committed), nil
}

func (b *MemoryBackend) LoadTemporal(_ context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.temporal == nil {
		return nil, ErrNoCheckpoint
	}
	return Clone(b.temporal), nil
}

func (b *MemoryBackend) Save(_ context.Context, snap *Snapshot, temporal bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SaveErr != nil {
		return b.SaveErr
	}
	if temporal {
		b.temporal = Clone(snap)
		return nil
	}
	b.committed = Clone(snap)
	b.temporal = nil
	return nil
}

func (b *MemoryBackend) DiscardTemporal(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.temporal = nil
	return nil
}

func (b *MemoryBackend) HasTemporal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.temporal != nil
}

func (b *MemoryBackend) AppendLog(_ context.Context, e *domain.LogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *e
	cp.Tasks = append([]domain.TaskType(nil), e.Tasks...)
	b.log = append(b.log, &cp)
	return nil
}

func (b *MemoryBackend) Log(_ context.Context) ([]*domain.LogEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*domain.LogEntry(nil), b.log...), nil
}
