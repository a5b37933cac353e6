// Package debounce coalesces bursts of triggers into a single trailing
// action. The engine uses it for highlight rebuild on resize and for
// read-aloud restart-from-click, trading a small fixed latency for avoiding
// redundant, layout-thrashing rebuilds.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs its action once, delay after the most recent Trigger.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	action func()
	timer  *time.Timer
}

// New builds a trailing-edge debouncer around action.
func New(delay time.Duration, action func()) *Debouncer {
	return &Debouncer{delay: delay, action: action}
}

// Trigger schedules the action, resetting the countdown if one is pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		d.action()
	})
}

// Cancel drops any pending action.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush runs a pending action immediately instead of waiting out the delay.
// A no-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil
	if pending {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if pending {
		d.action()
	}
}
