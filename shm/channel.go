package shm

import (
	"errors"

	"github.com/projector-cli/projector/log"
)

// Channel is a Slot bound to a provider key that survives its segment going away.
// Any segment error detaches the handle; callers keep going without the channel
// until the next Attach or Create.
type Channel struct {
	provider Provider
	key      int
	format   PixelFormat

	seg  Segment
	slot *Slot
	log  *log.Logger
}

func NewChannel(provider Provider, key int, format PixelFormat) *Channel {
	return &Channel{
		provider: provider,
		key:      key,
		format:   format,
		log:      log.For("shm").With("key", key),
	}
}

func (c *Channel) Key() int {
	return c.key
}

// Attached reports whether the channel currently holds a segment.
func (c *Channel) Attached() bool {
	return c.slot != nil
}

// Attach maps the segment the producer created under the channel's key.
func (c *Channel) Attach() error {
	c.Detach()

	seg, err := c.provider.Attach(c.key)
	if err != nil {
		return err
	}
	return c.bind(seg)
}

// Create allocates the segment and marks it empty.
func (c *Channel) Create(size int) error {
	c.Detach()

	seg, err := c.provider.Create(c.key, size)
	if err != nil {
		return err
	}

	if err = c.bind(seg); err != nil {
		return err
	}

	if err = c.slot.Reset(); err != nil {
		c.drop(err)
		return err
	}
	return nil
}

func (c *Channel) bind(seg Segment) error {
	slot, err := NewSlot(seg, c.format)
	if err != nil {
		_ = seg.Detach()
		return err
	}

	c.seg, c.slot = seg, slot
	c.log.Debugf("attached %d bytes", seg.Size())
	return nil
}

// Poll returns the pending frame, if any.
func (c *Channel) Poll() (Frame, bool) {
	if c.slot == nil {
		return Frame{}, false
	}

	frame, ok, err := c.slot.Poll()
	if err != nil {
		c.drop(err)
		return Frame{}, false
	}
	return frame, ok
}

// Release hands the slot back to the producer.
func (c *Channel) Release() {
	if c.slot == nil {
		return
	}
	if err := c.slot.Release(); err != nil {
		c.drop(err)
	}
}

// Writable reports whether a Publish would currently succeed.
func (c *Channel) Writable() bool {
	if c.slot == nil {
		return false
	}

	l, err := c.slot.Lock()
	if err != nil {
		c.drop(err)
		return false
	}
	return l == Unlocked
}

// Publish writes f if the slot is empty. A full slot drops the frame.
func (c *Channel) Publish(f Frame) bool {
	if c.slot == nil {
		return false
	}

	ok, err := c.slot.Publish(f)
	if err != nil {
		if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrGeometry) {
			c.log.Warnf("frame %dx%d refused: %v", f.Width, f.Height, err)
			return false
		}
		c.drop(err)
		return false
	}
	return ok
}

// Detach releases the mapping. It is safe to call on a detached channel.
func (c *Channel) Detach() {
	if c.seg == nil {
		return
	}

	if err := c.seg.Detach(); err != nil {
		c.log.Debugf("detach: %v", err)
	}
	c.seg, c.slot = nil, nil
}

// Remove detaches and deletes the segment.
func (c *Channel) Remove() error {
	c.Detach()
	return c.provider.Remove(c.key)
}

func (c *Channel) drop(err error) {
	if errors.Is(err, ErrStale) {
		c.log.Debugf("segment went away: %v", err)
	} else {
		c.log.Warnf("segment dropped: %v", err)
	}
	c.Detach()
}
