package core

import "time"

// SimConfig contains configuration passed to the director and simulator at
// initialization. Everything downstream of it is deterministic: the same
// config and the same level definition always produce the same battle.
type SimConfig struct {
	TickRate int   // Simulation ticks per second (default 30)
	Seed     int64 // RNG seed for weighted spawn draws and enemy lifetimes
}

// DefaultSimConfig returns a SimConfig with sensible defaults.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TickRate: 30,
		Seed:     0, // 0 means use current time in the platform layer
	}
}

// Tick is a simulation tick counter. All timed waits in the director are
// expressed as tick deadlines, never as wall-clock sleeps, so tests can
// advance time by calling Tick() in a loop.
type Tick uint64

// TickInterval returns the wall-clock duration of one tick.
func (c SimConfig) TickInterval() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = DefaultSimConfig().TickRate
	}
	return time.Second / time.Duration(rate)
}

// Ticks converts a duration into a whole number of ticks, rounding up so a
// positive delay never collapses to zero.
func (c SimConfig) Ticks(d time.Duration) Tick {
	if d <= 0 {
		return 0
	}
	interval := c.TickInterval()
	n := (d + interval - 1) / interval
	return Tick(n)
}
