package host

import (
	"sync/atomic"

	logx "questminder/pkg/logx"
)

// Clock is the simulated tick counter. It never moves backwards and is
// safe for concurrent use.
type Clock struct {
	tick   atomic.Int64
	paused atomic.Bool
	// pauses counts pause requests, including ones made while paused.
	pauses atomic.Uint64

	log logx.Logger
}

func NewClock(start int64, log logx.Logger) *Clock {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Clock{log: log}
	if start > 0 {
		c.tick.Store(start)
	}
	return c
}

func (c *Clock) CurrentTick() int64 { return c.tick.Load() }

// Advance moves the clock forward by n ticks unless paused, and returns the
// resulting tick. Non-positive n is ignored.
func (c *Clock) Advance(n int64) int64 {
	if n <= 0 || c.paused.Load() {
		return c.tick.Load()
	}
	return c.tick.Add(n)
}

// AdvanceTo moves the clock forward to tick, ignoring pauses. It never
// moves the clock backwards.
func (c *Clock) AdvanceTo(tick int64) int64 {
	for {
		cur := c.tick.Load()
		if tick <= cur {
			return cur
		}
		if c.tick.CompareAndSwap(cur, tick) {
			return tick
		}
	}
}

func (c *Clock) Pause() { c.paused.Store(true) }

func (c *Clock) Resume() {
	if c.paused.Swap(false) {
		c.log.Info("clock resumed", logx.Int64("tick", c.CurrentTick()))
	}
}

func (c *Clock) Paused() bool { return c.paused.Load() }

// RequestPause is what a notification asks for when the player must look
// at it. It pauses the clock.
func (c *Clock) RequestPause() {
	c.pauses.Add(1)
	if !c.paused.Swap(true) {
		c.log.Info("clock paused by request", logx.Int64("tick", c.CurrentTick()))
	}
}

// PauseRequests returns how many pause requests were made.
func (c *Clock) PauseRequests() uint64 { return c.pauses.Load() }
