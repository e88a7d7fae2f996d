package shm

import (
	"fmt"
	"sync"
	"unsafe"
)

// Memory is an in-process Provider. Segments created through it can be
// attached any number of times; removing a key turns every handle stale.
type Memory struct {
	mu       sync.Mutex
	segments map[int]*memoryRegion
}

type memoryRegion struct {
	mem     []byte
	removed bool
}

// NewMemory returns an empty in-process provider.
func NewMemory() *Memory {
	return &Memory{segments: make(map[int]*memoryRegion)}
}

func (m *Memory) Create(key, size int) (Segment, error) {
	if size < HeaderSize {
		return nil, fmt.Errorf("shm: segment size %d below header size", size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	region, ok := m.segments[key]
	if !ok || region.removed || len(region.mem) < size {
		// backed by uint64 words so the lock word is aligned
		words := make([]uint64, (size+7)/8)
		region = &memoryRegion{mem: unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)}
		m.segments[key] = region
	}

	return &memorySegment{owner: m, region: region}, nil
}

func (m *Memory) Attach(key int) (Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	region, ok := m.segments[key]
	if !ok || region.removed {
		return nil, fmt.Errorf("shm: no segment with key 0x%x", key)
	}
	return &memorySegment{owner: m, region: region}, nil
}

func (m *Memory) Remove(key int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if region, ok := m.segments[key]; ok {
		region.removed = true
		delete(m.segments, key)
	}
	return nil
}

type memorySegment struct {
	owner    *Memory
	region   *memoryRegion
	detached bool
}

func (s *memorySegment) Bytes() ([]byte, error) {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()

	if s.detached || s.region.removed {
		return nil, ErrStale
	}
	return s.region.mem, nil
}

func (s *memorySegment) Size() int {
	return len(s.region.mem)
}

func (s *memorySegment) Detach() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()

	s.detached = true
	return nil
}
