package paginate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalesces(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)
	d := NewDebouncer(20*time.Millisecond, func() {
		runs.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
	})

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	// wait out another interval to catch spurious extra runs
	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestDebouncerFiresAgainAfterQuiet(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(5*time.Millisecond, func() { runs.Add(1) })

	d.Trigger()
	time.Sleep(30 * time.Millisecond)
	d.Trigger()
	time.Sleep(30 * time.Millisecond)

	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(time.Hour, func() { runs.Add(1) })

	d.Flush() // nothing pending
	if got := runs.Load(); got != 0 {
		t.Errorf("runs after empty flush = %d, want 0", got)
	}

	d.Trigger()
	d.Flush()
	if got := runs.Load(); got != 1 {
		t.Errorf("runs after flush = %d, want 1", got)
	}

	d.Flush() // consumed
	if got := runs.Load(); got != 1 {
		t.Errorf("runs after second flush = %d, want 1", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { runs.Add(1) })

	d.Trigger()
	d.Stop()
	time.Sleep(30 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("runs after stop = %d, want 0", got)
	}
}

func TestDebouncerConcurrentTrigger(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { runs.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Trigger()
			}
		}()
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got < 1 {
		t.Error("callback never ran")
	}
}
