// Package shm implements the single-slot frame and overlay handoff over shared memory.
//
// Every segment starts with a 16-byte header in native byte order:
//
//	offset 0  lock byte (0x10 unlocked, 0x20 locked)
//	offset 2  width  uint16
//	offset 4  height uint16
//	offset 8  aspect float64
//
// followed by the raw pixel payload. The lock byte is the only synchronization
// between producer and consumer.
package shm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the fixed size of the segment header.
const HeaderSize = 16

// Lock is the value of the header's lock byte.
type Lock byte

const (
	// Unlocked means the slot is empty and the producer may write.
	Unlocked Lock = 0x10
	// Locked means the slot is full and must not be overwritten.
	Locked Lock = 0x20
)

func (l Lock) String() string {
	switch l {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("invalid(0x%02x)", byte(l))
	}
}

var (
	// ErrProtocol is returned when the lock byte holds neither Unlocked nor Locked.
	ErrProtocol = errors.New("shm: invalid lock byte")
	// ErrStale is returned when a segment handle no longer refers to live memory.
	ErrStale = errors.New("shm: stale segment")
	// ErrTooLarge is returned when a frame does not fit the segment.
	ErrTooLarge = errors.New("shm: frame exceeds segment capacity")
	// ErrGeometry is returned for frames the header cannot describe or whose
	// payload does not match their geometry.
	ErrGeometry = errors.New("shm: invalid frame geometry")
	// ErrUnsupported is returned by providers on platforms without System V shared memory.
	ErrUnsupported = errors.New("shm: not supported on this platform")
)

// PixelFormat decides the payload size for a geometry.
type PixelFormat int

const (
	// YV12 is planar 4:2:0, the format of mplayer's outbuf filter.
	YV12 PixelFormat = iota
	// BGR32 is packed 4 bytes per pixel, the format of overlays.
	BGR32
)

func (p PixelFormat) String() string {
	if p == BGR32 {
		return "bgr32"
	}
	return "yv12"
}

// PayloadSize returns the number of payload bytes for a w by h image.
func (p PixelFormat) PayloadSize(w, h int) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	if p == BGR32 {
		return w * h * 4
	}
	return w*h + 2*((w+1)/2)*((h+1)/2)
}

// SegmentSize returns header plus payload size.
func (p PixelFormat) SegmentSize(w, h int) int {
	return HeaderSize + p.PayloadSize(w, h)
}

// Header mirrors the geometry part of the segment header.
type Header struct {
	Width, Height int
	Aspect        float64
}

// Valid reports whether the geometry describes a drawable frame.
func (h Header) Valid() bool {
	return h.Width > 0 && h.Height > 0 && h.Aspect > 0
}

func readHeader(mem []byte) Header {
	return Header{
		Width:  int(binary.NativeEndian.Uint16(mem[2:4])),
		Height: int(binary.NativeEndian.Uint16(mem[4:6])),
		Aspect: math.Float64frombits(binary.NativeEndian.Uint64(mem[8:16])),
	}
}

// MaxDimension is the largest width or height the 16-bit header fields hold.
const MaxDimension = 0xFFFF

// Check verifies that the header can carry f and that Pixels is exactly the
// payload its geometry describes.
func (f Frame) Check() error {
	if f.Width < 1 || f.Width > MaxDimension || f.Height < 1 || f.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d outside 1..%d", ErrGeometry, f.Width, f.Height, MaxDimension)
	}
	if want := f.Format.PayloadSize(f.Width, f.Height); len(f.Pixels) != want {
		return fmt.Errorf("%w: %dx%d %s needs %d bytes, got %d", ErrGeometry, f.Width, f.Height, f.Format, want, len(f.Pixels))
	}
	return nil
}

// writeHeader writes geometry only. The lock byte is left alone.
func writeHeader(mem []byte, h Header) {
	binary.NativeEndian.PutUint16(mem[2:4], uint16(h.Width))
	binary.NativeEndian.PutUint16(mem[4:6], uint16(h.Height))
	binary.NativeEndian.PutUint64(mem[8:16], math.Float64bits(h.Aspect))
}

// Frame is one image in a slot. Pixels aliases the segment when returned by Poll.
type Frame struct {
	Header
	Format PixelFormat
	Pixels []byte
}

// Segment is an attached shared memory region.
type Segment interface {
	// Bytes returns the mapped region, or ErrStale if it is no longer valid.
	Bytes() ([]byte, error)
	Size() int
	Detach() error
}

// Provider creates and attaches segments by key.
type Provider interface {
	Create(key, size int) (Segment, error)
	Attach(key int) (Segment, error)
	Remove(key int) error
}
