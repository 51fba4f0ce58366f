// Package timer provides the kernel's monotonic clock source.
package timer

import (
	"sync"
	"time"
)

const (
	MicrosPerSecond = 1_000_000
	MicrosPerMilli  = 1_000
)

// Clock reports microseconds since boot, monotonic.
type Clock interface {
	NowMicros() uint64
}

// SystemClock measures time from its construction using the runtime's
// monotonic clock.
type SystemClock struct {
	boot time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

func (c *SystemClock) NowMicros() uint64 {
	return uint64(time.Since(c.boot).Microseconds())
}

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	mutex sync.Mutex
	now   uint64
}

func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) NowMicros() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// Advance moves the clock forward by micros microseconds.
func (c *ManualClock) Advance(micros uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now += micros
}
