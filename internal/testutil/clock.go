package testutil

import (
	"strconv"
	"sync/atomic"
	"time"

	"fscope/internal/fscope"
)

var (
	_ fscope.Clock       = (*StubClock)(nil)
	_ fscope.IDGenerator = (*StubIDGenerator)(nil)
)

// fixedTime is the instant FixedClock starts at.
var fixedTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a manually driven clock in UTC.
type StubClock struct {
	nanos atomic.Int64
}

// NewStubClock returns a clock reading t until moved.
func NewStubClock(t time.Time) *StubClock {
	c := &StubClock{}
	c.Set(t)
	return c
}

// FixedClock returns a clock reading 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(fixedTime)
}

func (c *StubClock) Now() time.Time {
	return time.Unix(0, c.nanos.Load()).UTC()
}

func (c *StubClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}

func (c *StubClock) Set(t time.Time) {
	c.nanos.Store(t.UnixNano())
}

// StubIDGenerator hands out "id-1", "id-2" and so on.
type StubIDGenerator struct {
	n atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "id-" + strconv.FormatInt(g.n.Add(1), 10)
}

// Issued returns how many IDs have been handed out.
func (g *StubIDGenerator) Issued() int {
	return int(g.n.Load())
}
