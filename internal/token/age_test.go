package token

import (
	"bytes"
	"path/filepath"
	"testing"

	"fscope/internal/config"
)

func newTestAgeSealer(t *testing.T) *AgeSealer {
	t.Helper()
	dir := t.TempDir()
	return NewAgeSealer(config.KeysConfig{
		IdentityPath: filepath.Join(dir, "keys", "tokens.key"),
	})
}

func TestAgeSealer_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	s := newTestAgeSealer(t)
	if s.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeSealer_Setup_IsConfigured(t *testing.T) {
	t.Parallel()
	s := newTestAgeSealer(t)

	if err := s.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !s.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}
}

func TestAgeSealer_SealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "payload", input: []byte(`{"v":1,"path":"/home/user/docs"}`)},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestAgeSealer(t)
			if err := s.Setup(); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			sealed, err := s.Seal(tt.input)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(sealed, tt.input) {
				t.Error("sealed token contains the plaintext")
			}

			got, err := s.Open(sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(got, tt.input) {
				t.Errorf("round-trip failed: got %q, want %q", got, tt.input)
			}
		})
	}
}

func TestAgeSealer_OpenFromFreshInstance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.KeysConfig{IdentityPath: filepath.Join(dir, "tokens.key")}

	first := NewAgeSealer(cfg)
	if err := first.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	sealed, err := first.Seal([]byte("persisted"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	// A new process reads the identity back from disk.
	second := NewAgeSealer(cfg)
	got, err := second.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("Open() = %q, want %q", got, "persisted")
	}
}

func TestAgeSealer_RejectsForeignAndCorruptTokens(t *testing.T) {
	t.Parallel()

	a := newTestAgeSealer(t)
	b := newTestAgeSealer(t)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := b.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	sealed, err := a.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	if _, err := b.Open(sealed); err == nil {
		t.Error("Open() with a different identity should fail")
	}

	corrupt := bytes.Clone(sealed)
	corrupt[len(corrupt)-1] ^= 0xff
	if _, err := a.Open(corrupt); err == nil {
		t.Error("Open() of a corrupted token should fail")
	}

	if _, err := a.Open([]byte("not a token")); err == nil {
		t.Error("Open() of garbage should fail")
	}
}

func TestAgeSealer_SealBeforeSetup(t *testing.T) {
	t.Parallel()
	s := newTestAgeSealer(t)
	if _, err := s.Seal([]byte("x")); err == nil {
		t.Error("Seal() before Setup should return error")
	}
}
