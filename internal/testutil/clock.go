package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SyncDay is where FixedClock starts: mid-morning of the day the fixture
// records were changed.
var SyncDay = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is a recsync.Clock under test control. When Tick is set, every
// Now call moves the clock forward by Tick after reading it.
type StubClock struct {
	Tick time.Duration

	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at SyncDay.
func FixedClock() *StubClock {
	return NewStubClock(SyncDay)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Tick)
	return t
}

func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// StubIDGenerator hands out "<Prefix>-1", "<Prefix>-2", ... Share one
// between services that write to the same journal.
type StubIDGenerator struct {
	Prefix string
	n      atomic.Int64
}

// NewStubIDGenerator returns a generator with prefix "run".
func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{Prefix: "run"}
}

func (g *StubIDGenerator) New() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}
