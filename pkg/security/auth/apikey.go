package auth

import (
	"fmt"
	"sort"
	"sync"
)

// APIKeyValidator validates API keys against a configured set of keys
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo
}

// NewAPIKeyValidator creates a new API key validator with the given keys
func NewAPIKeyValidator(keys []*APIKeyInfo) *APIKeyValidator {
	keyMap := make(map[string]*APIKeyInfo, len(keys))
	for _, key := range keys {
		keyMap[key.Key] = key
	}

	return &APIKeyValidator{
		keys: keyMap,
	}
}

// Validate checks if the given API key is valid and returns its info
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[key]
	if !ok || key == "" {
		return nil, ErrInvalidKey
	}

	if !info.Enabled {
		return nil, fmt.Errorf("%w for identity %q", ErrDisabledKey, info.Identity)
	}

	return info, nil
}

// List returns all configured API keys ordered by identity.
func (v *APIKeyValidator) List() []*APIKeyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]*APIKeyInfo, 0, len(v.keys))
	for _, key := range v.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Identity != keys[j].Identity {
			return keys[i].Identity < keys[j].Identity
		}
		return keys[i].Key < keys[j].Key
	})
	return keys
}

// Replace swaps the whole key set, as on configuration reload.
func (v *APIKeyValidator) Replace(keys []*APIKeyInfo) {
	keyMap := make(map[string]*APIKeyInfo, len(keys))
	for _, key := range keys {
		keyMap[key.Key] = key
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = keyMap
}
