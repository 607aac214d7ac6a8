package forms

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of triggers into one call after the burst
// goes quiet, the draft-autosave pattern: one write per pause in
// typing, not one per keystroke.
type Debouncer struct {
	d  time.Duration
	fn func()

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{d: d, fn: fn}
}

// Trigger (re)arms the timer; fn runs d after the last Trigger.
func (b *Debouncer) Trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.d, b.fn)
}

// Flush runs fn now if a trigger is pending.
func (b *Debouncer) Flush() {
	b.mu.Lock()
	pending := b.timer != nil && b.timer.Stop()
	b.timer = nil
	b.mu.Unlock()
	if pending {
		b.fn()
	}
}

// Stop cancels any pending call.
func (b *Debouncer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
