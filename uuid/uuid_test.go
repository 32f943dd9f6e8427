package uuid

import (
	"bytes"
	"testing"
)

func TestUUID16(t *testing.T) {
	if want, got := (UUID{b: []byte{0x18, 0x00}}), UUID16(0x1800); !got.Equal(want) {
		t.Errorf("UUID16: got %x, want %x", got.b, want.b)
	}
}

func TestEquivalentAcrossSizes(t *testing.T) {
	u16 := UUID16(0x180F)
	u128 := MustParseUUID("0000180F-0000-1000-8000-00805F9B34FB")
	if !u16.Equivalent(u128) {
		t.Errorf("expected %v equivalent to %v", u16, u128)
	}
	other := UUID16(0x1810)
	if u16.Equivalent(other) {
		t.Errorf("did not expect %v equivalent to %v", u16, other)
	}
}

func TestReverse(t *testing.T) {
	cases := []struct {
		fwd  []byte
		back []byte
	}{
		{fwd: []byte{0, 1}, back: []byte{1, 0}},
		{fwd: []byte{0, 1, 2}, back: []byte{2, 1, 0}},
		{fwd: []byte{0, 1, 2, 3}, back: []byte{3, 2, 1, 0}},
	}
	for _, tt := range cases {
		got := reverse(tt.fwd)
		if !bytes.Equal(got, tt.back) {
			t.Errorf("reverse(%x): got %x want %x", tt.fwd, got, tt.back)
		}
	}
}

func TestLittleEndianRoundTrip(t *testing.T) {
	u := UUID16(0x2A00)
	le := u.LittleEndianBytes()
	if !bytes.Equal(le, []byte{0x00, 0x2A}) {
		t.Errorf("LittleEndianBytes: got %x", le)
	}
	got, err := From16(le, true)
	if err != nil {
		t.Fatalf("From16: %v", err)
	}
	if !got.Equal(u) {
		t.Errorf("From16 round-trip: got %v want %v", got, u)
	}
}

func TestStringForm(t *testing.T) {
	if got, want := UUID16(0x1800).String(), "0x1800"; got != want {
		t.Errorf("String: got %q want %q", got, want)
	}
}

func TestTypeSizeInt(t *testing.T) {
	cases := []struct {
		u    UUID
		want int
	}{
		{UUID16(1), 2},
		{UUID32(1), 4},
		{MustParseUUID("0000180F-0000-1000-8000-00805F9B34FB"), 16},
	}
	for _, tt := range cases {
		if got := tt.u.TypeSizeInt(); got != tt.want {
			t.Errorf("TypeSizeInt(%v): got %d want %d", tt.u, got, tt.want)
		}
	}
}
