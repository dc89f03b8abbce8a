// Package metrics measures transfer throughput
package metrics

import (
	"sync"
	"time"
)

const oneSecond = 1000

// ByteCounter measures bytes per second over a rolling second.
//
// When a call to AddBytes crosses a second boundary, the bytes of that call
// are split between the finished second and the next one in proportion to
// the time spent on each side of the boundary.
type ByteCounter struct {
	mu sync.Mutex

	// now returns the current time in milliseconds
	now func() int64

	previousTime int64
	timeCounted  int64
	bytesCounted int64
	bytesPerSec  int64
}

// NewByteCounter creates a counter using the wall clock
func NewByteCounter() *ByteCounter {
	return &ByteCounter{
		now: func() int64 { return time.Now().UnixMilli() },
	}
}

// Prepare resets the counter and starts the clock. Call it right before
// the first AddBytes.
func (c *ByteCounter) Prepare() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.previousTime = c.now()
	c.timeCounted = 0
	c.bytesCounted = 0
	c.bytesPerSec = 0
}

// AddBytes registers bytes transferred since the previous call
func (c *ByteCounter) AddBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	spent := c.updateTimeSpent(c.now())
	c.updateCounters(n, spent)
}

// BytesPerSec returns the rate of the last completed second
func (c *ByteCounter) BytesPerSec() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesPerSec
}

// BytesCounted returns the bytes carried into the current second
func (c *ByteCounter) BytesCounted() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesCounted
}

// TimeCounted returns the milliseconds carried into the current second
func (c *ByteCounter) TimeCounted() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeCounted
}

func (c *ByteCounter) updateTimeSpent(current int64) int64 {
	spent := current - c.previousTime
	c.previousTime = current
	return spent
}

func (c *ByteCounter) updateCounters(added, spent int64) {
	c.timeCounted += spent
	c.bytesCounted += added

	if c.timeCounted < oneSecond {
		return
	}

	if spent > oneSecond {
		// the whole second happened inside this interval
		c.bytesPerSec = share(added, spent, oneSecond)
		c.timeCounted = 0
		c.bytesCounted = 0
		return
	}

	origTime := c.timeCounted - spent
	origBytes := c.bytesCounted - added
	timeLeft := oneSecond - origTime

	c.bytesPerSec = origBytes + share(added, spent, timeLeft)
	c.timeCounted %= oneSecond
	c.bytesCounted -= c.bytesPerSec
}

// share returns the part of bytes that belongs to timeLeft out of spent,
// truncated toward zero.
func share(bytes, spent, timeLeft int64) int64 {
	percent := (100.0 / float64(spent)) * float64(timeLeft)
	return int64((percent / 100.0) * float64(bytes))
}
