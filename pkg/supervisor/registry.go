package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/porthole/pkg/supervisor/store"
	"mercator-hq/porthole/pkg/token"
)

// ErrUnknownIdentity is returned when an identity has no supervisors.
var ErrUnknownIdentity = errors.New("unknown identity")

// Lookup finds the supervisors of an identity, in registration order.
type Lookup interface {
	LookupSupervisors(ctx context.Context, identity string) ([]*Supervisor, error)
}

// Policies are the deployment-wide token policies.
type Policies struct {
	Startup  token.StartupPolicy
	Shutdown token.ShutdownPolicy
}

// Registry holds the registered supervisors, keyed by identity.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string][]*Supervisor

	backend  store.Backend
	policies Policies
	logger   *slog.Logger
}

// NewRegistry creates an empty registry persisting through backend.
func NewRegistry(backend store.Backend, policies Policies) *Registry {
	return &Registry{
		byIdentity: make(map[string][]*Supervisor),
		backend:    backend,
		policies:   policies,
		logger:     slog.Default().With("component", "supervisor.registry"),
	}
}

// Policies returns the token policies applied by the registry.
func (r *Registry) Policies() Policies {
	return r.policies
}

// LookupSupervisors returns the supervisors of identity.
func (r *Registry) LookupSupervisors(ctx context.Context, identity string) ([]*Supervisor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sups, ok := r.byIdentity[identity]
	if !ok || len(sups) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
	}
	out := make([]*Supervisor, len(sups))
	copy(out, sups)
	return out, nil
}

// Get returns one supervisor, or nil.
func (r *Registry) Get(identity, name string) *Supervisor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.byIdentity[identity] {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Register loads the supervisor's saved state, applies the startup policy if
// needed, saves the result and makes the supervisor visible to lookups. An
// existing supervisor with the same identity and name is replaced in place.
func (r *Registry) Register(ctx context.Context, sup *Supervisor) error {
	rec, err := r.backend.Load(ctx, sup.Identity, sup.Name)
	if err != nil {
		return fmt.Errorf("load state for %s: %w", sup, err)
	}

	var state map[string]any
	if rec != nil {
		state = rec.State
	}
	if err := sup.LoadState(state, r.policies.Startup); err != nil {
		return err
	}

	if err := r.Save(ctx, sup); err != nil {
		return err
	}

	r.put(sup)

	r.logger.Info("supervisor registered",
		"identity", sup.Identity,
		"name", sup.Name,
		"kind", sup.Kind,
		"restored", rec != nil,
	)
	return nil
}

// Remove tears a supervisor down: the shutdown policy is applied, the state
// saved and the supervisor dropped from lookups. Removing an unknown
// supervisor is a no-op.
func (r *Registry) Remove(ctx context.Context, identity, name string) error {
	sup := r.take(identity, name)
	if sup == nil {
		return nil
	}

	state, err := sup.ClearState(r.policies.Shutdown)
	if err != nil {
		return err
	}
	if err := r.backend.Save(ctx, &store.Record{Identity: sup.Identity, Supervisor: sup.Name, State: state}); err != nil {
		return fmt.Errorf("save state for %s: %w", sup, err)
	}

	r.logger.Info("supervisor removed", "identity", identity, "name", name)
	return nil
}

// Save persists one supervisor's current state.
func (r *Registry) Save(ctx context.Context, sup *Supervisor) error {
	rec := &store.Record{Identity: sup.Identity, Supervisor: sup.Name, State: sup.State()}
	if err := r.backend.Save(ctx, rec); err != nil {
		return fmt.Errorf("save state for %s: %w", sup, err)
	}
	return nil
}

// SaveAll persists every registered supervisor. It keeps going after a
// failure and returns all errors joined.
func (r *Registry) SaveAll(ctx context.Context) (int, error) {
	var (
		errs  []error
		saved int
	)
	for _, sup := range r.All() {
		if err := r.Save(ctx, sup); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}

// All returns every registered supervisor ordered by identity then name.
func (r *Registry) All() []*Supervisor {
	r.mu.RLock()
	var out []*Supervisor
	for _, sups := range r.byIdentity {
		out = append(out, sups...)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Identity != out[j].Identity {
			return out[i].Identity < out[j].Identity
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CountByKind returns the number of registered supervisors per kind.
func (r *Registry) CountByKind() map[Kind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[Kind]int{KindContainer: 0, KindTokenized: 0, KindProcess: 0}
	for _, sups := range r.byIdentity {
		for _, s := range sups {
			counts[s.Kind]++
		}
	}
	return counts
}

// Replace reconciles the registry with a full list of supervisor specs:
// supervisors not listed are removed, new ones registered, and changed ones
// updated. A supervisor whose kind is unchanged keeps its token.
func (r *Registry) Replace(ctx context.Context, specs []Spec) error {
	wanted := make(map[key]Spec, len(specs))
	for _, spec := range specs {
		wanted[key{spec.Identity, spec.Name}] = spec
	}

	var errs []error
	for _, sup := range r.All() {
		if _, ok := wanted[key{sup.Identity, sup.Name}]; !ok {
			if err := r.Remove(ctx, sup.Identity, sup.Name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, spec := range specs {
		existing := r.Get(spec.Identity, spec.Name)

		switch {
		case existing == nil:
			errs = append(errs, r.Register(ctx, spec.supervisor()))

		case existing.Kind != spec.Kind:
			if err := r.Remove(ctx, spec.Identity, spec.Name); err != nil {
				errs = append(errs, err)
				continue
			}
			errs = append(errs, r.Register(ctx, spec.supervisor()))

		default:
			if spec.ContainerID == "" {
				spec.ContainerID = existing.ContainerID
			}
			if existing.ContainerID == spec.ContainerID && existing.HostIP == spec.HostIP {
				continue
			}
			updated := spec.supervisor()
			updated.Token = existing.Token
			r.put(updated)
			errs = append(errs, r.Save(ctx, updated))
			r.logger.Info("supervisor updated",
				"identity", spec.Identity,
				"name", spec.Name,
				"container_id", spec.ContainerID,
			)
		}
	}

	return errors.Join(errs...)
}

type key struct {
	identity string
	name     string
}

func (r *Registry) put(sup *Supervisor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sups := r.byIdentity[sup.Identity]
	for i, s := range sups {
		if s.Name == sup.Name {
			sups[i] = sup
			return
		}
	}
	r.byIdentity[sup.Identity] = append(sups, sup)
}

func (r *Registry) take(identity, name string) *Supervisor {
	r.mu.Lock()
	defer r.mu.Unlock()

	sups := r.byIdentity[identity]
	for i, s := range sups {
		if s.Name != name {
			continue
		}
		rest := append(sups[:i:i], sups[i+1:]...)
		if len(rest) == 0 {
			delete(r.byIdentity, identity)
		} else {
			r.byIdentity[identity] = rest
		}
		return s
	}
	return nil
}
