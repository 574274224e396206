package token

import (
	"fmt"

	"fscope/internal/config"
	"fscope/internal/fscope"
)

// NewSealerFromConfig creates a TokenSealer based on the configuration type.
// An age identity is generated on first use.
func NewSealerFromConfig(cfg config.KeysConfig) (fscope.TokenSealer, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.IdentityPath == "" {
			return nil, fmt.Errorf("identity_path required for age keys")
		}
		s := NewAgeSealer(cfg)
		if !s.IsConfigured() {
			if err := s.Setup(); err != nil {
				return nil, fmt.Errorf("setting up token identity: %w", err)
			}
		}
		return s, nil
	case "test":
		return NewTestSealer(), nil
	default:
		return nil, fmt.Errorf("unknown keys type: %q", cfg.Type)
	}
}
