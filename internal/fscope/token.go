package fscope

import (
	"encoding/json"
	"fmt"
	"time"
)

// AccessToken is an opaque, persistable grant to a location. Callers store
// and pass it around as bytes and never interpret it.
type AccessToken []byte

// TokenSealer turns token payloads into opaque blobs and back. Open must fail
// for blobs it did not produce.
type TokenSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// ResolvedLocation is the live location a token currently refers to.
type ResolvedLocation struct {
	Path  string
	IsDir bool
	// Stale is set when the location moved or was replaced since the token
	// was created. The token still resolved, but a fresh one should be
	// created from Path.
	Stale bool
}

const tokenVersion = 1

type tokenPayload struct {
	Version   int       `json:"v"`
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Dev       uint64    `json:"dev"`
	Ino       uint64    `json:"ino"`
	IsDir     bool      `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
}

func (p tokenPayload) identity() FileID {
	return FileID{Dev: p.Dev, Ino: p.Ino}
}

func encodePayload(p tokenPayload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding token payload: %w", err)
	}
	return data, nil
}

func decodePayload(data []byte) (tokenPayload, error) {
	var p tokenPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return tokenPayload{}, fmt.Errorf("decoding token payload: %w", err)
	}
	if p.Version != tokenVersion {
		return tokenPayload{}, fmt.Errorf("unsupported token version %d", p.Version)
	}
	if p.Path == "" {
		return tokenPayload{}, fmt.Errorf("token has no path")
	}
	return p, nil
}
