package supervisor

import (
	"fmt"

	"mercator-hq/porthole/pkg/portmap"
	"mercator-hq/porthole/pkg/token"
)

// Kind is the type of a supervisor.
type Kind string

const (
	// KindContainer supervises a container without a proxy token. Proxied
	// requests to it are always allowed.
	KindContainer Kind = "container"

	// KindTokenized supervises a container and holds a proxy token.
	KindTokenized Kind = "tokenized"

	// KindProcess supervises a local process. It cannot be proxied.
	KindProcess Kind = "process"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindContainer, KindTokenized, KindProcess:
		return k, nil
	default:
		return "", fmt.Errorf("unknown supervisor kind %q", s)
	}
}

// ContainerFamily reports whether supervisors of this kind run containers.
func (k Kind) ContainerFamily() bool {
	return k == KindContainer || k == KindTokenized
}

// containerIDKey is the state blob key of the container ID.
const containerIDKey = "container_id"

// Supervisor manages one user container.
type Supervisor struct {
	// Identity is the platform user owning the supervisor.
	Identity string

	// Name distinguishes supervisors of the same identity. The default
	// supervisor has an empty name.
	Name string

	Kind        Kind
	ContainerID string

	// HostIP is the host address container ports are published on.
	HostIP string

	// Token is non-nil iff Kind is KindTokenized.
	Token *token.State
}

// New creates a supervisor. Tokenized supervisors start with an
// uninitialized token; LoadState initializes it.
func New(identity, name string, kind Kind, containerID, hostIP string) *Supervisor {
	s := &Supervisor{
		Identity:    identity,
		Name:        name,
		Kind:        kind,
		ContainerID: containerID,
		HostIP:      hostIP,
	}
	if kind == KindTokenized {
		s.Token = token.NewState()
	}
	return s
}

// Tokenized reports whether the supervisor carries a proxy token.
func (s *Supervisor) Tokenized() bool {
	return s.Token != nil
}

// Target returns what port resolution needs to know about the container.
func (s *Supervisor) Target() portmap.Target {
	return portmap.Target{ContainerID: s.ContainerID, HostIP: s.HostIP}
}

// String returns "identity" or "identity/name".
func (s *Supervisor) String() string {
	if s.Name == "" {
		return s.Identity
	}
	return s.Identity + "/" + s.Name
}

// State returns the supervisor's state blob.
func (s *Supervisor) State() map[string]any {
	state := make(map[string]any, 2)
	if s.ContainerID != "" {
		state[containerIDKey] = s.ContainerID
	}
	if s.Token != nil {
		token.Persist(s.Token, state)
	}
	return state
}

// ContainerIDFromState returns the container ID recorded in a state blob.
func ContainerIDFromState(state map[string]any) string {
	id, _ := state[containerIDKey].(string)
	return id
}

// LoadState restores the supervisor from a saved blob, which may be nil.
// The container ID from the blob is used only when none is set. A tokenized
// supervisor without a saved token gets one from the startup policy.
//
// LoadState must be called before the supervisor is shared.
func (s *Supervisor) LoadState(state map[string]any, startup token.StartupPolicy) error {
	if s.ContainerID == "" {
		if id, ok := state[containerIDKey].(string); ok {
			s.ContainerID = id
		}
	}

	if s.Token == nil {
		return nil
	}

	restored, err := token.Restore(state)
	if err != nil {
		return fmt.Errorf("restore token for %s: %w", s, err)
	}
	if err := token.InitializeIfAbsent(restored, startup); err != nil {
		return err
	}
	s.Token = restored
	return nil
}

// ClearState applies the shutdown policy on teardown and returns the blob to
// save. The container ID is dropped since the container is gone.
func (s *Supervisor) ClearState(shutdown token.ShutdownPolicy) (map[string]any, error) {
	if s.Token != nil {
		if err := token.Finalize(s.Token, shutdown); err != nil {
			return nil, err
		}
	}
	state := s.State()
	delete(state, containerIDKey)
	return state, nil
}

// FirstContainerSpawner returns the first supervisor of the container
// family, or nil.
func FirstContainerSpawner(sups []*Supervisor) *Supervisor {
	for _, s := range sups {
		if s.Kind.ContainerFamily() {
			return s
		}
	}
	return nil
}
