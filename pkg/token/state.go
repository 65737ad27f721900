package token

import "sync"

// Mode is the authorization mode encoded by a token's secret.
type Mode int

const (
	// ModeDisabled denies every request (no secret).
	ModeDisabled Mode = iota

	// ModeOpen allows every request (empty secret).
	ModeOpen

	// ModeProtected allows requests presenting the exact secret.
	ModeProtected
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeOpen:
		return "open"
	case ModeProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// State is the token held by one supervisor.
//
// The zero value is an uninitialized, disabled token: it has no secret and
// InitializeIfAbsent will apply the startup policy to it.
type State struct {
	mu sync.RWMutex

	// secret is nil when disabled, "" when open, anything else when protected.
	secret *string

	// present records whether a secret (possibly nil) has been restored or
	// assigned. It separates "persisted as disabled" from "never set".
	present bool
}

// NewState returns an uninitialized token.
func NewState() *State {
	return &State{}
}

// NewStateWithSecret returns an initialized token holding secret.
func NewStateWithSecret(secret *string) *State {
	return &State{secret: clone(secret), present: true}
}

// Secret returns a copy of the current secret. Nil means disabled.
func (s *State) Secret() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.secret)
}

// Mode returns the current authorization mode.
func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return modeOf(s.secret)
}

// Present reports whether the token has been initialized, restored or set.
func (s *State) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present
}

// Equal reports whether two tokens hold the same secret and presence.
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	a, aPresent := s.snapshot()
	b, bPresent := other.snapshot()
	if aPresent != bPresent {
		return false
	}
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *State) snapshot() (*string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret, s.present
}

func modeOf(secret *string) Mode {
	switch {
	case secret == nil:
		return ModeDisabled
	case *secret == "":
		return ModeOpen
	default:
		return ModeProtected
	}
}

func clone(secret *string) *string {
	if secret == nil {
		return nil
	}
	v := *secret
	return &v
}

// String returns a pointer to v, for building secrets in literals.
func String(v string) *string {
	return &v
}
