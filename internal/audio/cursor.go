package audio

import (
	"sync"
	"time"
)

// Cursor tracks the next free playback slot so queued chunks play back to
// back without gaps or overlap. It only moves forward.
type Cursor struct {
	mu   sync.Mutex
	next time.Time
}

// Start returns max(next, now) without moving the cursor.
func (c *Cursor) Start(now time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(now)
}

func (c *Cursor) startLocked(now time.Time) time.Time {
	if c.next.After(now) {
		return c.next
	}
	return now
}

// Commit records that a chunk of length d was scheduled at start.
func (c *Cursor) Commit(start time.Time, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if end := start.Add(d); end.After(c.next) {
		c.next = end
	}
}

// Schedule reserves a slot of length d and returns its start.
func (c *Cursor) Schedule(now time.Time, d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := c.startLocked(now)
	c.next = start.Add(d)
	return start
}

// Next returns the end of the last scheduled chunk.
func (c *Cursor) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
