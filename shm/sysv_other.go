//go:build !(linux || (darwin && !ios))

package shm

type unsupported struct{}

// SysV returns a provider that fails every call on this platform.
func SysV() Provider {
	return unsupported{}
}

func (unsupported) Create(int, int) (Segment, error) { return nil, ErrUnsupported }
func (unsupported) Attach(int) (Segment, error)      { return nil, ErrUnsupported }
func (unsupported) Remove(int) error                 { return ErrUnsupported }
