package token

import (
	"errors"
	"fmt"

	"github.com/dchest/uniuri"
)

const (
	// DefaultLength is the length of a generated secret.
	DefaultLength = 40

	// Alphabet is the character set of generated secrets.
	Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// StateKey is the key of the secret in a supervisor state blob.
	StateKey = "proxy_token"
)

// ErrMalformedRecord is returned when a persisted secret is neither a string
// nor null.
var ErrMalformedRecord = errors.New("malformed proxy token record")

var alphabet = []byte(Alphabet)

// InitializeIfAbsent applies policy to a token that has no persisted secret.
// A token that was restored or assigned is left unchanged, whatever the policy.
func InitializeIfAbsent(s *State, policy StartupPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.present {
		return nil
	}

	switch policy {
	case StartupDisabled:
		s.secret = nil
	case StartupOpen:
		s.secret = String("")
	case StartupRandom:
		s.secret = String(generate(DefaultLength))
	default:
		return fmt.Errorf("%w: unknown startup policy %q", ErrInvalidPolicy, policy)
	}
	s.present = true
	return nil
}

// Regenerate replaces the secret with a new random one of the given length.
// A non-positive length uses DefaultLength. The new secret is returned.
func Regenerate(s *State, length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	secret := generate(length)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = &secret
	s.present = true
	return secret
}

// Set replaces the secret with a caller-chosen value. Nil disables the proxy
// and the empty string opens it.
func Set(s *State, secret *string) {
	v := clone(secret)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = v
	s.present = true
}

// Finalize applies policy on supervisor teardown.
func Finalize(s *State, policy ShutdownPolicy) error {
	switch policy {
	case ShutdownPass:
		return nil
	case ShutdownDisable:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.secret = nil
		s.present = true
		return nil
	default:
		return fmt.Errorf("%w: unknown shutdown policy %q", ErrInvalidPolicy, policy)
	}
}

// Persist writes the secret into a supervisor state blob. An uninitialized
// token writes nothing, so that the next Restore still sees no prior secret.
func Persist(s *State, record map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.present {
		return
	}
	if s.secret == nil {
		record[StateKey] = nil
		return
	}
	record[StateKey] = *s.secret
}

// Restore reads the secret from a supervisor state blob. A missing key yields
// an uninitialized token; a null value yields a disabled one.
func Restore(record map[string]any) (*State, error) {
	raw, ok := record[StateKey]
	if !ok {
		return NewState(), nil
	}
	switch v := raw.(type) {
	case nil:
		return NewStateWithSecret(nil), nil
	case string:
		return NewStateWithSecret(&v), nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformedRecord, raw)
	}
}

func generate(length int) string {
	return uniuri.NewLenChars(length, alphabet)
}
