package listview

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once triggering has
// paused for the configured delay.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
	fn    func()
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger cancels any pending run and schedules fn after the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.fn = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A Stop that lost the race with the timer leaves an old callback running.
	if seq != d.seq || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending function now, if any, and reports whether it did.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.fn == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	fn := d.fn
	d.fn, d.timer = nil, nil
	d.mu.Unlock()
	fn()
	return true
}

// Stop drops the pending function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.fn, d.timer = nil, nil
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
