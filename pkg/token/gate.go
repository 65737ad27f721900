package token

import "crypto/subtle"

// Decision is the outcome of an authorization check.
type Decision bool

const (
	// Deny refuses the request.
	Deny Decision = false

	// Allow lets the request through.
	Allow Decision = true
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Decide checks a presented credential against the token. A missing
// credential is passed as the empty string.
//
// Disabled denies, open allows whatever was presented, protected allows only
// an exact match.
func Decide(s *State, presented string) Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch modeOf(s.secret) {
	case ModeOpen:
		return Allow
	case ModeProtected:
		if subtle.ConstantTimeCompare([]byte(presented), []byte(*s.secret)) == 1 {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}
