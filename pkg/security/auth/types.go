package auth

import "errors"

// Validation errors.
var (
	ErrInvalidKey  = errors.New("invalid API key")
	ErrDisabledKey = errors.New("API key disabled")
	ErrMissingKey  = errors.New("no API key found")
)

// APIKeyInfo maps an API key to the platform identity it authenticates.
type APIKeyInfo struct {
	Key      string
	Identity string
	Enabled  bool
}

// APIKeyStore stores and validates API keys
type APIKeyStore interface {
	Validate(key string) (*APIKeyInfo, error)
	List() []*APIKeyInfo
}
