package countdown

import (
	"sync"
	"time"
)

// SyncedClock is a time source that corrects local clock drift against a
// server-reported reference instant. Between syncs it runs on the local
// monotonic clock plus the last measured offset, so a skewed or suspended
// client converges on server time instead of its own.
type SyncedClock struct {
	mu     sync.Mutex
	offset time.Duration
}

// NewSyncedClock returns a clock with no correction applied yet.
func NewSyncedClock() *SyncedClock {
	return &SyncedClock{}
}

// Now returns the corrected current time.
func (c *SyncedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

// Sync records a server reference instant observed now and returns the
// measured offset. Callers that hold a Machine should invoke its Resync
// afterwards so the state is recomputed against the corrected time.
func (c *SyncedClock) Sync(serverNow time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = time.Until(serverNow)
	return c.offset
}

// Offset returns the last measured offset.
func (c *SyncedClock) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}
