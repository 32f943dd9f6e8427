// Package octets implements OctetBuffer, a contiguous byte region with
// explicit endianness and bounds-checked integer/UUID accessors.
//
// Every accessor takes an explicit offset; there is no implicit cursor.
// An owned buffer has a capacity independent of its current size and can
// be resized up to that capacity; a view buffer wraps someone else's bytes
// read-only (Resize/Zero on a view return ErrRange).
package octets

import "errors"

// ErrRange is returned by any accessor that would read or write outside
// the buffer's current size, and by any mutation attempted on a view.
var ErrRange = errors.New("octets: out of range")

// ByteOrder selects little- or big-endian interpretation of multi-byte
// integers. BLE ATT and mgmt PDUs are little-endian, UUIDs included,
// while the uuid package holds UUID bytes big-endian and reverses them at
// the wire boundary, so callers pick explicitly per field.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Buffer is a byte span with a logical size (<= len(data)) and a capacity
// (cap(data)). A Buffer created by View is read-only: mutating calls fail
// with ErrRange rather than panicking, so a malformed-PDU parse can always
// be turned into a typed error.
type Buffer struct {
	data     []byte
	size     int
	readOnly bool
}

// New allocates an owned buffer of the given size and capacity. capacity
// must be >= size.
func New(size, capacity int) *Buffer {
	if capacity < size {
		capacity = size
	}
	return &Buffer{data: make([]byte, capacity), size: size}
}

// Wrap creates an owned buffer directly over b; size and capacity both
// equal len(b).
func Wrap(b []byte) *Buffer {
	return &Buffer{data: b, size: len(b)}
}

// View creates a read-only buffer over b. It does not copy.
func View(b []byte) *Buffer {
	return &Buffer{data: b, size: len(b), readOnly: true}
}

// Size returns the logical length of the buffer.
func (b *Buffer) Size() int { return b.size }

// Capacity returns the maximum size Resize can grow to without reallocating.
func (b *Buffer) Capacity() int { return cap(b.data) }

// Bytes returns the logical contents as a slice backed by the buffer's own
// storage. Callers must not retain it across a subsequent Resize.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// Resize changes the logical size. Growing beyond Capacity fails with
// ErrRange and leaves the buffer unchanged. Newly exposed bytes when
// growing are not zeroed by Resize alone; call Zero for that.
func (b *Buffer) Resize(size int) error {
	if b.readOnly {
		return ErrRange
	}
	if size < 0 || size > cap(b.data) {
		return ErrRange
	}
	b.size = size
	return nil
}

// Recapacity grows the backing storage to at least capacity, preserving
// current contents and size. It is a no-op if capacity is already large
// enough.
func (b *Buffer) Recapacity(capacity int) error {
	if b.readOnly {
		return ErrRange
	}
	if capacity <= cap(b.data) {
		return nil
	}
	nb := make([]byte, capacity)
	copy(nb, b.data[:b.size])
	b.data = nb
	return nil
}

// Zero overwrites [off, off+n) with zero bytes.
func (b *Buffer) Zero(off, n int) error {
	if b.readOnly {
		return ErrRange
	}
	if off < 0 || n < 0 || off+n > b.size {
		return ErrRange
	}
	for i := off; i < off+n; i++ {
		b.data[i] = 0
	}
	return nil
}

func (b *Buffer) checkRange(off, n int) error {
	if off < 0 || n < 0 || off+n > b.size {
		return ErrRange
	}
	return nil
}

// GetBytes returns a read-only sub-view [off, off+n).
func (b *Buffer) GetBytes(off, n int) (*Buffer, error) {
	if err := b.checkRange(off, n); err != nil {
		return nil, err
	}
	return View(b.data[off : off+n]), nil
}

// PutBytes copies src into the buffer starting at off.
func (b *Buffer) PutBytes(off int, src []byte) error {
	if b.readOnly {
		return ErrRange
	}
	if err := b.checkRange(off, len(src)); err != nil {
		return err
	}
	copy(b.data[off:], src)
	return nil
}

func (b *Buffer) GetU8(off int) (uint8, error) {
	if err := b.checkRange(off, 1); err != nil {
		return 0, err
	}
	return b.data[off], nil
}

func (b *Buffer) PutU8(off int, v uint8) error {
	if b.readOnly {
		return ErrRange
	}
	if err := b.checkRange(off, 1); err != nil {
		return err
	}
	b.data[off] = v
	return nil
}

func (b *Buffer) GetU16(off int, order ByteOrder) (uint16, error) {
	if err := b.checkRange(off, 2); err != nil {
		return 0, err
	}
	p := b.data[off : off+2]
	if order == LittleEndian {
		return uint16(p[0]) | uint16(p[1])<<8, nil
	}
	return uint16(p[1]) | uint16(p[0])<<8, nil
}

func (b *Buffer) PutU16(off int, v uint16, order ByteOrder) error {
	if b.readOnly {
		return ErrRange
	}
	if err := b.checkRange(off, 2); err != nil {
		return err
	}
	p := b.data[off : off+2]
	if order == LittleEndian {
		p[0], p[1] = byte(v), byte(v>>8)
	} else {
		p[0], p[1] = byte(v>>8), byte(v)
	}
	return nil
}

func (b *Buffer) GetU24(off int, order ByteOrder) (uint32, error) {
	if err := b.checkRange(off, 3); err != nil {
		return 0, err
	}
	p := b.data[off : off+3]
	if order == LittleEndian {
		return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16, nil
	}
	return uint32(p[2]) | uint32(p[1])<<8 | uint32(p[0])<<16, nil
}

func (b *Buffer) PutU24(off int, v uint32, order ByteOrder) error {
	if b.readOnly {
		return ErrRange
	}
	if err := b.checkRange(off, 3); err != nil {
		return err
	}
	p := b.data[off : off+3]
	if order == LittleEndian {
		p[0], p[1], p[2] = byte(v), byte(v>>8), byte(v>>16)
	} else {
		p[0], p[1], p[2] = byte(v>>16), byte(v>>8), byte(v)
	}
	return nil
}

func (b *Buffer) GetU32(off int, order ByteOrder) (uint32, error) {
	if err := b.checkRange(off, 4); err != nil {
		return 0, err
	}
	p := b.data[off : off+4]
	if order == LittleEndian {
		return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24, nil
	}
	return uint32(p[3]) | uint32(p[2])<<8 | uint32(p[1])<<16 | uint32(p[0])<<24, nil
}

func (b *Buffer) PutU32(off int, v uint32, order ByteOrder) error {
	if b.readOnly {
		return ErrRange
	}
	if err := b.checkRange(off, 4); err != nil {
		return err
	}
	p := b.data[off : off+4]
	if order == LittleEndian {
		p[0], p[1], p[2], p[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	} else {
		p[0], p[1], p[2], p[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	}
	return nil
}

func (b *Buffer) GetU64(off int, order ByteOrder) (uint64, error) {
	if err := b.checkRange(off, 8); err != nil {
		return 0, err
	}
	lo, _ := b.GetU32(off, order)
	hi, _ := b.GetU32(off+4, order)
	if order == LittleEndian {
		return uint64(lo) | uint64(hi)<<32, nil
	}
	return uint64(hi) | uint64(lo)<<32, nil
}

func (b *Buffer) PutU64(off int, v uint64, order ByteOrder) error {
	if b.readOnly {
		return ErrRange
	}
	if err := b.checkRange(off, 8); err != nil {
		return err
	}
	if order == LittleEndian {
		b.PutU32(off, uint32(v), order)
		b.PutU32(off+4, uint32(v>>32), order)
	} else {
		b.PutU32(off, uint32(v>>32), order)
		b.PutU32(off+4, uint32(v), order)
	}
	return nil
}

// GetU128 returns the 16 raw bytes at off, in wire order (no endian
// reinterpretation - callers needing UUID semantics use the uuid package).
func (b *Buffer) GetU128(off int) ([]byte, error) {
	if err := b.checkRange(off, 16); err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	copy(out, b.data[off:off+16])
	return out, nil
}

func (b *Buffer) PutU128(off int, v []byte) error {
	if len(v) != 16 {
		return ErrRange
	}
	return b.PutBytes(off, v)
}

// PutString writes s at off, optionally appending a trailing NUL.
func (b *Buffer) PutString(off int, s string, trailingNUL bool) error {
	if b.readOnly {
		return ErrRange
	}
	n := len(s)
	if trailingNUL {
		n++
	}
	if err := b.checkRange(off, n); err != nil {
		return err
	}
	copy(b.data[off:], s)
	if trailingNUL {
		b.data[off+len(s)] = 0
	}
	return nil
}
