package octets

import (
	"bytes"
	"testing"
)

func TestPutGetU16RoundTrip(t *testing.T) {
	cases := []struct {
		v     uint16
		order ByteOrder
		want  []byte
	}{
		{v: 0x0102, order: LittleEndian, want: []byte{0x02, 0x01}},
		{v: 0x0102, order: BigEndian, want: []byte{0x01, 0x02}},
	}
	for _, tt := range cases {
		b := New(2, 2)
		if err := b.PutU16(0, tt.v, tt.order); err != nil {
			t.Fatalf("PutU16: %v", err)
		}
		if !bytes.Equal(b.Bytes(), tt.want) {
			t.Errorf("PutU16(%x, %v): got %x want %x", tt.v, tt.order, b.Bytes(), tt.want)
		}
		got, err := b.GetU16(0, tt.order)
		if err != nil {
			t.Fatalf("GetU16: %v", err)
		}
		if got != tt.v {
			t.Errorf("GetU16: got %x want %x", got, tt.v)
		}
	}
}

func TestOutOfRangeDoesNotMutate(t *testing.T) {
	b := New(2, 2)
	orig := append([]byte{}, b.Bytes()...)
	if err := b.PutU32(0, 0xdeadbeef, LittleEndian); err != ErrRange {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	if !bytes.Equal(b.Bytes(), orig) {
		t.Errorf("buffer mutated on failed PutU32: got %x want %x", b.Bytes(), orig)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	v := View([]byte{1, 2, 3})
	if err := v.PutU8(0, 9); err != ErrRange {
		t.Fatalf("expected ErrRange writing to view, got %v", err)
	}
	if err := v.Resize(10); err != ErrRange {
		t.Fatalf("expected ErrRange resizing view, got %v", err)
	}
}

func TestGetBytesSubview(t *testing.T) {
	b := Wrap([]byte{0, 1, 2, 3, 4})
	sub, err := b.GetBytes(1, 3)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if !bytes.Equal(sub.Bytes(), []byte{1, 2, 3}) {
		t.Errorf("GetBytes: got %x", sub.Bytes())
	}
	if _, err := b.GetBytes(3, 10); err != ErrRange {
		t.Fatalf("expected ErrRange for out-of-range sub-view, got %v", err)
	}
}

func TestResizeGrowWithinCapacity(t *testing.T) {
	b := New(2, 8)
	if err := b.Resize(8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := b.Resize(9); err != ErrRange {
		t.Fatalf("expected ErrRange growing past capacity, got %v", err)
	}
}

func TestPutStringTrailingNUL(t *testing.T) {
	b := New(0, 8)
	b.Resize(6)
	if err := b.PutString(0, "abc", true); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	if !bytes.Equal(b.Bytes(), []byte("abc\x00\x00\x00")) {
		t.Errorf("PutString: got %q", b.Bytes())
	}
}
