package runner

import (
	"testing"
	"time"
)

func TestStartRunsWorkUntilStop(t *testing.T) {
	var iterations int
	r := New("test", func(r *Runner) {
		iterations++
		time.Sleep(time.Millisecond)
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	r.Stop(time.Second)
	if iterations == 0 {
		t.Fatalf("expected work to run at least once")
	}
	if r.Failed() {
		t.Fatalf("Stop should not have timed out")
	}
}

func TestHooksRunInOrder(t *testing.T) {
	var order []string
	r := New("test",
		func(r *Runner) { r.SetShallStop() },
		WithInit(func() { order = append(order, "init") }),
		WithLockedEnd(func() { order = append(order, "lockedEnd") }),
		WithFinalEnd(func() { order = append(order, "finalEnd") }),
	)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Done()
	want := []string{"init", "lockedEnd", "finalEnd"}
	if len(order) != len(want) {
		t.Fatalf("order: got %v want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: got %v want %v", order, want)
		}
	}
}

func TestDoubleStartErrors(t *testing.T) {
	r := New("test", func(r *Runner) { r.SetShallStop() })
	if err := r.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	<-r.Done()
	if err := r.Start(); err == nil {
		t.Fatalf("expected error on second Start")
	}
}

func TestStopTimesOutMarksFailed(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	r := New("test", func(r *Runner) {
		close(entered)
		<-block
		r.SetShallStop()
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered // Stop only times out once the work function is running
	r.Stop(10 * time.Millisecond)
	if !r.Failed() {
		t.Fatalf("expected Stop to time out and mark failed")
	}
	close(block)
	<-r.Done()
}

func TestWorkCanSetShallStopItself(t *testing.T) {
	calls := 0
	r := New("test", func(r *Runner) {
		calls++
		if calls >= 3 {
			r.SetShallStop()
		}
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Done()
	if calls != 3 {
		t.Fatalf("calls: got %d want 3", calls)
	}
}
