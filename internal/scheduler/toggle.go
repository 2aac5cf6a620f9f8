package scheduler

import "sync/atomic"

// Toggle gates a job on and off at runtime without rebuilding the cron
// entries. The job checks Enabled at the top of each tick.
type Toggle struct {
	enabled atomic.Bool
}

// NewToggle returns a toggle in the given initial state.
func NewToggle(enabled bool) *Toggle {
	t := &Toggle{}
	t.enabled.Store(enabled)
	return t
}

// Enable turns the job on.
func (t *Toggle) Enable() { t.enabled.Store(true) }

// Disable turns the job off.
func (t *Toggle) Disable() { t.enabled.Store(false) }

// Enabled reports the current state.
func (t *Toggle) Enabled() bool { return t.enabled.Load() }
