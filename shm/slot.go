package shm

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Slot is the tagged Empty/Full handoff over one segment.
//
// Producer obligations: write only while Unlocked, write geometry and payload
// first, flip to Locked last. Consumer obligations: read only while Locked,
// re-read geometry on every poll, flip back to Unlocked when done.
type Slot struct {
	seg    Segment
	format PixelFormat
}

// NewSlot wraps seg. The segment must be at least HeaderSize bytes.
func NewSlot(seg Segment, format PixelFormat) (*Slot, error) {
	if seg.Size() < HeaderSize {
		return nil, fmt.Errorf("shm: segment of %d bytes cannot hold a header", seg.Size())
	}
	return &Slot{seg: seg, format: format}, nil
}

// Capacity is the largest payload the slot can carry.
func (s *Slot) Capacity() int {
	return s.seg.Size() - HeaderSize
}

// Reset marks a freshly created segment as empty.
func (s *Slot) Reset() error {
	mem, err := s.seg.Bytes()
	if err != nil {
		return err
	}
	storeLock(mem, Unlocked)
	return nil
}

// Lock reads the lock byte.
func (s *Slot) Lock() (Lock, error) {
	mem, err := s.seg.Bytes()
	if err != nil {
		return 0, err
	}

	l := loadLock(mem)
	if l != Locked && l != Unlocked {
		return l, ErrProtocol
	}
	return l, nil
}

// Publish hands f to the consumer.
// Frames failing Check are refused with ErrGeometry.
// While the previous frame is still Locked nothing is written and false is returned:
// the frame is dropped, never queued.
func (s *Slot) Publish(f Frame) (bool, error) {
	mem, err := s.seg.Bytes()
	if err != nil {
		return false, err
	}

	switch l := loadLock(mem); l {
	case Locked:
		return false, nil
	case Unlocked:
	default:
		return false, ErrProtocol
	}

	if HeaderSize+len(f.Pixels) > len(mem) {
		return false, ErrTooLarge
	}
	if f.Format != s.format {
		return false, fmt.Errorf("%w: %s frame in a %s slot", ErrGeometry, f.Format, s.format)
	}
	if err := f.Check(); err != nil {
		return false, err
	}

	writeHeader(mem, f.Header)
	copy(mem[HeaderSize:], f.Pixels)
	storeLock(mem, Locked)
	return true, nil
}

// Poll returns the current frame if the slot is full.
// The returned Pixels alias shared memory and stay valid until Release.
// Frames with non-positive geometry are reported as not ready.
func (s *Slot) Poll() (Frame, bool, error) {
	mem, err := s.seg.Bytes()
	if err != nil {
		return Frame{}, false, err
	}

	switch l := loadLock(mem); l {
	case Unlocked:
		return Frame{}, false, nil
	case Locked:
	default:
		return Frame{}, false, ErrProtocol
	}

	h := readHeader(mem)
	if !h.Valid() {
		return Frame{}, false, nil
	}

	size := s.format.PayloadSize(h.Width, h.Height)
	if HeaderSize+size > len(mem) {
		return Frame{}, false, ErrTooLarge
	}

	return Frame{
		Header: h,
		Format: s.format,
		Pixels: mem[HeaderSize : HeaderSize+size : HeaderSize+size],
	}, true, nil
}

// Release empties the slot so the producer may write again.
func (s *Slot) Release() error {
	mem, err := s.seg.Bytes()
	if err != nil {
		return err
	}
	storeLock(mem, Unlocked)
	return nil
}

// The lock byte shares its aligned 32-bit word with the width field, so it is
// accessed through atomic word operations that only ever change byte 0.

func lockWord(mem []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&mem[0]))
}

func loadLock(mem []byte) Lock {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], atomic.LoadUint32(lockWord(mem)))
	return Lock(b[0])
}

func storeLock(mem []byte, l Lock) {
	word := lockWord(mem)
	for {
		old := atomic.LoadUint32(word)

		var b [4]byte
		binary.NativeEndian.PutUint32(b[:], old)
		b[0] = byte(l)

		if atomic.CompareAndSwapUint32(word, old, binary.NativeEndian.Uint32(b[:])) {
			return
		}
	}
}
