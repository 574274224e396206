package fscope

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the timestamps stamped on tokens and bookmarks.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator names tokens, bookmarks and monitor streams.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces version 7 UUIDs, which sort by creation time, and
// falls back to random ones if the time-based generator fails.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
