package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryBackend implements Backend in memory. Data is lost on exit.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[key]*Record
}

type key struct {
	identity   string
	supervisor string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[key]*Record)}
}

// Save stores a copy of rec.
func (m *MemoryBackend) Save(ctx context.Context, rec *Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := rec.clone()
	c.UpdatedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key{rec.Identity, rec.Supervisor}] = c
	return nil
}

// Load returns a copy of the stored record, or nil.
func (m *MemoryBackend) Load(ctx context.Context, identity, supervisor string) (*Record, error) {
	if identity == "" {
		return nil, errEmptyIdentity
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key{identity, supervisor}]
	if !ok {
		return nil, nil
	}
	return rec.clone(), nil
}

// Delete removes a record.
func (m *MemoryBackend) Delete(ctx context.Context, identity, supervisor string) error {
	if identity == "" {
		return errEmptyIdentity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key{identity, supervisor})
	return nil
}

// List returns copies of all records.
func (m *MemoryBackend) List(ctx context.Context) ([]*Record, error) {
	m.mu.RLock()
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Identity != out[j].Identity {
			return out[i].Identity < out[j].Identity
		}
		return out[i].Supervisor < out[j].Supervisor
	})
	return out, nil
}

// Ping always succeeds.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

var errEmptyIdentity = errors.New("identity cannot be empty")

func validate(rec *Record) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	if rec.Identity == "" {
		return errEmptyIdentity
	}
	return nil
}
