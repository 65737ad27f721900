package token

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned for an unrecognized startup or shutdown policy.
// It is a deployment configuration error and is never recoverable per request.
var ErrInvalidPolicy = errors.New("invalid token policy")

// StartupPolicy decides the token of a supervisor that has no persisted secret.
type StartupPolicy string

const (
	// StartupDisabled starts with the proxy disabled.
	StartupDisabled StartupPolicy = "disabled"

	// StartupOpen starts with the proxy open to everyone.
	StartupOpen StartupPolicy = "allow_all"

	// StartupRandom starts protected with a freshly generated secret.
	StartupRandom StartupPolicy = "random"
)

// ParseStartupPolicy parses a startup policy name. "open" is accepted as an
// alias of "allow_all".
func ParseStartupPolicy(name string) (StartupPolicy, error) {
	switch name {
	case string(StartupDisabled):
		return StartupDisabled, nil
	case string(StartupOpen), "open":
		return StartupOpen, nil
	case string(StartupRandom):
		return StartupRandom, nil
	default:
		return "", fmt.Errorf("%w: unknown startup policy %q", ErrInvalidPolicy, name)
	}
}

// ShutdownPolicy decides what happens to the token on supervisor teardown.
type ShutdownPolicy string

const (
	// ShutdownPass leaves the token untouched.
	ShutdownPass ShutdownPolicy = "pass"

	// ShutdownDisable forces the token to disabled. If the supervisor record
	// is kept, it stays disabled after the next load.
	ShutdownDisable ShutdownPolicy = "disable"
)

// ParseShutdownPolicy parses a shutdown policy name.
func ParseShutdownPolicy(name string) (ShutdownPolicy, error) {
	switch name {
	case string(ShutdownPass):
		return ShutdownPass, nil
	case string(ShutdownDisable):
		return ShutdownDisable, nil
	default:
		return "", fmt.Errorf("%w: unknown shutdown policy %q", ErrInvalidPolicy, name)
	}
}
