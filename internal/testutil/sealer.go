package testutil

import (
	"path/filepath"
	"testing"

	"fscope/internal/config"
	"fscope/internal/token"
)

// NewAgeSealer creates an age sealer with a fresh identity in a temp directory.
func NewAgeSealer(t *testing.T) *token.AgeSealer {
	t.Helper()

	s := token.NewAgeSealer(config.KeysConfig{
		Type:         "age",
		IdentityPath: filepath.Join(t.TempDir(), "tokens.key"),
	})
	if err := s.Setup(); err != nil {
		t.Fatalf("failed to set up age identity: %v", err)
	}
	return s
}
