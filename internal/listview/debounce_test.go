package listview

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRunsLastOnce(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Value
	done := make(chan struct{}, 4)
	for _, s := range []string{"a", "ab", "abc"} {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(s)
			done <- struct{}{}
		})
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced func never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
	if got := last.Load(); got != "abc" {
		t.Fatalf("ran %v, want abc", got)
	}
	if d.Pending() {
		t.Fatal("still pending after run")
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	ran := false
	if d.Flush() {
		t.Fatal("Flush with nothing pending")
	}
	d.Trigger(func() { ran = true })
	if !d.Pending() {
		t.Fatal("not pending after Trigger")
	}
	if !d.Flush() || !ran {
		t.Fatal("Flush did not run the pending func")
	}
	if d.Flush() {
		t.Fatal("second Flush ran again")
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("stopped func ran")
	}
}
