package auth

import (
	"errors"
	"testing"
)

func testKeys() []*APIKeyInfo {
	return []*APIKeyInfo{
		{Key: "key-alice", Identity: "alice", Enabled: true},
		{Key: "key-bob", Identity: "bob", Enabled: true},
		{Key: "key-carol", Identity: "carol", Enabled: false},
	}
}

func TestNewAPIKeyValidator(t *testing.T) {
	validator := NewAPIKeyValidator(testKeys())

	if validator == nil {
		t.Fatal("NewAPIKeyValidator returned nil")
	}
	if len(validator.keys) != 3 {
		t.Errorf("Expected 3 keys, got %d", len(validator.keys))
	}
}

func TestAPIKeyValidator_Validate(t *testing.T) {
	validator := NewAPIKeyValidator(testKeys())

	tests := []struct {
		name         string
		key          string
		wantErr      error
		wantIdentity string
	}{
		{name: "valid enabled key", key: "key-alice", wantIdentity: "alice"},
		{name: "second key", key: "key-bob", wantIdentity: "bob"},
		{name: "disabled key", key: "key-carol", wantErr: ErrDisabledKey},
		{name: "unknown key", key: "key-mallory", wantErr: ErrInvalidKey},
		{name: "empty key", key: "", wantErr: ErrInvalidKey},
		{name: "prefix of a key", key: "key-ali", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := validator.Validate(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if info.Identity != tt.wantIdentity {
				t.Errorf("Identity = %q, want %q", info.Identity, tt.wantIdentity)
			}
		})
	}
}

func TestAPIKeyValidator_List(t *testing.T) {
	validator := NewAPIKeyValidator(testKeys())

	keys := validator.List()
	if len(keys) != 3 {
		t.Fatalf("List() returned %d keys, want 3", len(keys))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if keys[i].Identity != want {
			t.Errorf("keys[%d].Identity = %q, want %q", i, keys[i].Identity, want)
		}
	}
}

func TestAPIKeyValidator_Replace(t *testing.T) {
	validator := NewAPIKeyValidator(testKeys())

	validator.Replace([]*APIKeyInfo{{Key: "key-dave", Identity: "dave", Enabled: true}})

	if _, err := validator.Validate("key-alice"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("old key still valid: %v", err)
	}
	if info, err := validator.Validate("key-dave"); err != nil || info.Identity != "dave" {
		t.Errorf("Validate(new key) = %v, %v", info, err)
	}
}
