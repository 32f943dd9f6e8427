package ringbuf

import (
	"sync"
	"testing"
	"time"
)

func TestClampCapacity(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, MinCapacity},
		{1, MinCapacity},
		{128, 128},
		{5000, MaxCapacity},
	}
	for _, tt := range cases {
		if got := ClampCapacity(tt.in); got != tt.want {
			t.Errorf("ClampCapacity(%d): got %d want %d", tt.in, got, tt.want)
		}
	}
}

func TestPutGetFIFOOrder(t *testing.T) {
	r := New(64)
	r.PutBlocking([]byte{1})
	r.PutBlocking([]byte{2})
	r.PutBlocking([]byte{3})

	for _, want := range [][]byte{{1}, {2}, {3}} {
		got, ok := r.GetBlocking(time.Second)
		if !ok || got[0] != want[0] {
			t.Fatalf("GetBlocking: got %v,%v want %v", got, ok, want)
		}
	}
}

func TestGetBlockingTimesOut(t *testing.T) {
	r := New(64)
	start := time.Now()
	_, ok := r.GetBlocking(20 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout on empty ring")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
}

func TestClearDropsQueued(t *testing.T) {
	r := New(64)
	r.PutBlocking([]byte{1})
	r.PutBlocking([]byte{2})
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("Len after Clear: got %d", r.Len())
	}
	if _, ok := r.GetBlocking(10 * time.Millisecond); ok {
		t.Fatalf("expected empty ring after Clear")
	}
}

func TestPutBlockingBlocksWhenFull(t *testing.T) {
	r := New(MinCapacity)
	for i := 0; i < MinCapacity; i++ {
		r.PutBlocking([]byte{byte(i)})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		r.PutBlocking([]byte{0xFF})
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("PutBlocking returned while ring was full")
	case <-time.After(20 * time.Millisecond):
	}

	r.GetBlocking(time.Second)
	wg.Wait()
}
