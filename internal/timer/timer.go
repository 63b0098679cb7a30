// Package timer implements the single countdown clock that paces a study
// session. The clock holds no goroutine of its own: the host event loop
// calls Tick at its own cadence, which keeps remaining time independent of
// any particular view's lifecycle.
package timer

// Countdown tracks the seconds left in the current phase. Ticks must be
// serialized by the caller; the controller is the only tick source.
type Countdown struct {
	remaining int
	timed     bool // phase has a countdown at all
	running   bool
	inert     bool // practice mode: ticks are no-ops
}

// New returns a stopped countdown with no time on the clock.
func New() *Countdown {
	return &Countdown{}
}

// SetInert marks the clock inert for unbounded practice sessions.
func (c *Countdown) SetInert(inert bool) {
	c.inert = inert
	if inert {
		c.running = false
	}
}

// Inert reports whether the clock ignores ticks.
func (c *Countdown) Inert() bool { return c.inert }

// Reset loads a new phase duration. A duration of zero marks the phase
// untimed: such phases advance only on explicit user action.
func (c *Countdown) Reset(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	c.timed = seconds > 0
	c.running = c.timed && !c.inert
}

// Restore reloads persisted clock state, keeping a resumed session's
// remaining time rather than restarting the phase.
func (c *Countdown) Restore(remaining int, timed bool) {
	if remaining < 0 {
		remaining = 0
	}
	c.remaining = remaining
	c.timed = timed
	c.running = timed && !c.inert
}

// Remaining returns the seconds left on the clock.
func (c *Countdown) Remaining() int { return c.remaining }

// Running reports whether the clock is counting down.
func (c *Countdown) Running() bool { return c.running }

// Timed reports whether the current phase has a countdown.
func (c *Countdown) Timed() bool { return c.timed }

// Stop pauses the clock without losing the remaining time, so a later
// Resume continues where it left off.
func (c *Countdown) Stop() {
	c.running = false
}

// Resume restarts a paused clock. Untimed phases stay stopped; a timed
// phase resumes even at zero so the pending advance still fires.
func (c *Countdown) Resume() {
	c.running = c.timed && !c.inert
}

// Tick advances the clock by one second and reports whether the phase
// should advance: the tick that reaches zero advances, as does any tick
// arriving while the clock already sits at zero. Inert and stopped clocks
// never request an advance.
func (c *Countdown) Tick() (advance bool) {
	if c.inert || !c.running {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining == 0
}
