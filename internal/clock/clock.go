// Package clock provides the engine's tick source: a ticker built on
// channerics, the same one the Subscriber Bridge uses for its keep-alive
// pings, so both run atop one done-channel-driven ticker implementation
// instead of two ad hoc uses of time.NewTicker.
package clock

import (
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/LemmyAI/unitsim/internal/model"
)

// Clock produces ticks at a fixed interval and converts wall time to the
// engine's TimeStamp unit (milliseconds).
type Clock struct {
	interval time.Duration
	start    time.Time
}

// New returns a Clock that ticks every interval, with its epoch set to now.
func New(interval time.Duration) *Clock {
	return &Clock{interval: interval, start: time.Now()}
}

// Interval reports the configured tick interval.
func (c *Clock) Interval() time.Duration { return c.interval }

// Ticks returns a channel that fires on the clock's interval until done is
// closed, at which point it stops and the channel is abandoned.
func (c *Clock) Ticks(done <-chan struct{}) <-chan time.Time {
	return channerics.NewTicker(done, c.interval)
}

// Now returns the current simulated time, milliseconds elapsed since the
// Clock was created.
func (c *Clock) Now() model.TimeStamp {
	return model.TimeStamp(time.Since(c.start).Milliseconds())
}
