//go:build linux || (darwin && !ios)

package shm

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

type sysv struct{}

// SysV returns the System V shared memory provider used by engine filters.
func SysV() Provider {
	return sysv{}
}

func (sysv) Create(key, size int) (Segment, error) {
	id, err := unix.SysvShmGet(key, size, unix.IPC_CREAT|0o600)
	if err != nil {
		return nil, fmt.Errorf("shmget 0x%x: %w", key, err)
	}
	return attachID(id)
}

func (sysv) Attach(key int) (Segment, error) {
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmget 0x%x: %w", key, err)
	}
	return attachID(id)
}

func (sysv) Remove(key int) error {
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("shmget 0x%x: %w", key, err)
	}

	if _, err := unix.SysvShmCtl(id, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("shmctl rmid 0x%x: %w", key, err)
	}
	return nil
}

func attachID(id int) (Segment, error) {
	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat %d: %w", id, err)
	}
	return &sysvSegment{id: id, mem: mem}, nil
}

type sysvSegment struct {
	id  int
	mem []byte
}

// Bytes checks that the segment still exists before handing out the mapping.
func (s *sysvSegment) Bytes() ([]byte, error) {
	if s.mem == nil {
		return nil, ErrStale
	}

	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(s.id, unix.IPC_STAT, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStale, err)
	}
	return s.mem, nil
}

func (s *sysvSegment) Size() int {
	return len(s.mem)
}

func (s *sysvSegment) Detach() error {
	if s.mem == nil {
		return nil
	}

	err := unix.SysvShmDetach(s.mem)
	s.mem = nil
	return err
}
