package store

import (
	"context"
	"time"
)

// Backend persists supervisor state blobs.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save inserts or replaces the record for (Identity, Supervisor).
	Save(ctx context.Context, rec *Record) error

	// Load returns the record for identity and supervisor, or nil when none
	// was saved.
	Load(ctx context.Context, identity, supervisor string) (*Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, identity, supervisor string) error

	// List returns every stored record ordered by identity then supervisor.
	List(ctx context.Context) ([]*Record, error)

	// Ping checks that the backend is usable.
	Ping(ctx context.Context) error

	// Close releases resources. The backend must not be used afterwards.
	Close() error
}

// Record is the persisted state of one supervisor.
type Record struct {
	// Identity is the platform user owning the supervisor.
	Identity string

	// Supervisor is the supervisor name; "" is the default supervisor.
	Supervisor string

	// State is the supervisor's state blob. Values must be JSON-encodable.
	State map[string]any

	// UpdatedAt is set by Save.
	UpdatedAt time.Time
}

func (r *Record) clone() *Record {
	c := *r
	c.State = make(map[string]any, len(r.State))
	for k, v := range r.State {
		c.State[k] = v
	}
	return &c
}
