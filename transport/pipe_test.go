package transport

import (
	"testing"
	"time"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipePair()
	defer a.Close()
	defer b.Close()

	want := []byte{1, 2, 3, 4}
	done := make(chan error, 1)
	go func() { done <- a.Write(want) }()

	got, err := b.Read(time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Read: got %x want %x", got, want)
	}
}

func TestPipeReadTimesOut(t *testing.T) {
	a, b := NewPipePair()
	defer a.Close()
	defer b.Close()

	_, err := b.Read(20 * time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("Read: got %v want ErrTimeout", err)
	}
}

func TestPipeCloseThenReadFails(t *testing.T) {
	a, b := NewPipePair()
	defer b.Close()
	a.Close()

	if err := a.Write([]byte{1}); err != ErrClosed {
		t.Errorf("Write after Close: got %v", err)
	}
	if _, err := a.Read(time.Second); err != ErrClosed {
		t.Errorf("Read after Close: got %v", err)
	}
}

func TestPipeMultipleFramesPreserveOrder(t *testing.T) {
	a, b := NewPipePair()
	defer a.Close()
	defer b.Close()

	frames := [][]byte{{1}, {2, 2}, {3, 3, 3}}
	go func() {
		for _, f := range frames {
			a.Write(f)
		}
	}()
	for _, want := range frames {
		got, err := b.Read(time.Second)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("Read: got %x want %x", got, want)
		}
	}
}
