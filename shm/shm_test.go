package shm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func newSlot(p *Memory, key, size int, format PixelFormat) *Slot {
	seg := lo.Must(p.Create(key, size))
	slot := lo.Must(NewSlot(seg, format))
	lo.Must0(slot.Reset())
	return slot
}

func TestSlot(t *testing.T) {
	Convey("Given an empty frame slot", t, func() {
		p := NewMemory()
		slot := newSlot(p, 1, YV12.SegmentSize(4, 2), YV12)

		pixels := bytes.Repeat([]byte{7}, YV12.PayloadSize(4, 2))
		frame := Frame{Header: Header{Width: 4, Height: 2, Aspect: 2}, Format: YV12, Pixels: pixels}

		Convey("Poll should report nothing", func() {
			_, ok, err := slot.Poll()
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("A published frame should be readable", func() {
			ok, err := slot.Publish(frame)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(lo.Must(slot.Lock()), ShouldEqual, Locked)

			got, ready, err := slot.Poll()
			So(err, ShouldBeNil)
			So(ready, ShouldBeTrue)
			So(got.Width, ShouldEqual, 4)
			So(got.Height, ShouldEqual, 2)
			So(got.Aspect, ShouldEqual, 2.0)
			So(got.Pixels, ShouldResemble, pixels)

			Convey("A second publish should be refused without touching the payload", func() {
				other := frame
				other.Pixels = bytes.Repeat([]byte{9}, len(pixels))

				ok, err := slot.Publish(other)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)

				again, _, _ := slot.Poll()
				So(again.Pixels, ShouldResemble, pixels)
			})

			Convey("Release should let the producer write again", func() {
				So(slot.Release(), ShouldBeNil)
				So(lo.Must(slot.Lock()), ShouldEqual, Unlocked)

				ok, err := slot.Publish(frame)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("A frame larger than the segment should fail", func() {
			big := frame
			big.Pixels = make([]byte, 1024)
			_, err := slot.Publish(big)
			So(err, ShouldEqual, ErrTooLarge)
		})

		Convey("A garbage lock byte should be a protocol error", func() {
			mem := lo.Must(slot.seg.Bytes())
			mem[0] = 0x33

			_, _, err := slot.Poll()
			So(err, ShouldEqual, ErrProtocol)

			_, err = slot.Publish(frame)
			So(err, ShouldEqual, ErrProtocol)
		})

		Convey("A locked slot with zero geometry should not be ready", func() {
			mem := lo.Must(slot.seg.Bytes())
			writeHeader(mem, Header{})
			storeLock(mem, Locked)

			_, ready, err := slot.Poll()
			So(err, ShouldBeNil)
			So(ready, ShouldBeFalse)
		})

		Convey("Geometry the header cannot hold should be refused", func() {
			for _, h := range []Header{{Width: 70000, Height: 1, Aspect: 1}, {Width: 0, Height: 2, Aspect: 1}, {Width: 4, Height: -2, Aspect: 1}} {
				ok, err := slot.Publish(Frame{Header: h, Format: YV12, Pixels: make([]byte, 8)})
				So(errors.Is(err, ErrGeometry), ShouldBeTrue)
				So(ok, ShouldBeFalse)
			}
			So(lo.Must(slot.Lock()), ShouldEqual, Unlocked)
		})

		Convey("A payload shorter than its geometry should be refused", func() {
			short := frame
			short.Pixels = pixels[:len(pixels)-1]
			ok, err := slot.Publish(short)
			So(errors.Is(err, ErrGeometry), ShouldBeTrue)
			So(ok, ShouldBeFalse)

			_, ready, err := slot.Poll()
			So(err, ShouldBeNil)
			So(ready, ShouldBeFalse)
		})

		Convey("Writing the header should leave the lock byte alone", func() {
			mem := lo.Must(slot.seg.Bytes())
			writeHeader(mem, Header{Width: 0xffff, Height: 1, Aspect: 1})
			So(Lock(mem[0]), ShouldEqual, Unlocked)
		})
	})
}

func TestChannel(t *testing.T) {
	Convey("Given a producer and a consumer on the same key", t, func() {
		p := NewMemory()
		producer := NewChannel(p, 0x42, BGR32)
		So(producer.Create(BGR32.SegmentSize(2, 2)), ShouldBeNil)

		consumer := NewChannel(p, 0x42, BGR32)
		So(consumer.Attach(), ShouldBeNil)
		So(consumer.Attached(), ShouldBeTrue)

		frame := Frame{Header: Header{Width: 2, Height: 2, Aspect: 1}, Format: BGR32, Pixels: make([]byte, 16)}

		Convey("Frames should flow and the slot should toggle", func() {
			So(producer.Writable(), ShouldBeTrue)
			So(producer.Publish(frame), ShouldBeTrue)
			So(producer.Writable(), ShouldBeFalse)
			So(producer.Publish(frame), ShouldBeFalse)

			_, ok := consumer.Poll()
			So(ok, ShouldBeTrue)

			consumer.Release()
			So(producer.Writable(), ShouldBeTrue)
		})

		Convey("A removed segment should detach the consumer", func() {
			So(producer.Remove(), ShouldBeNil)

			_, ok := consumer.Poll()
			So(ok, ShouldBeFalse)
			So(consumer.Attached(), ShouldBeFalse)

			Convey("and later calls should be no-ops", func() {
				consumer.Release()
				So(consumer.Publish(frame), ShouldBeFalse)
				So(consumer.Writable(), ShouldBeFalse)
			})

			Convey("and attaching again should fail until recreated", func() {
				So(consumer.Attach(), ShouldNotBeNil)
				So(producer.Create(BGR32.SegmentSize(2, 2)), ShouldBeNil)
				So(consumer.Attach(), ShouldBeNil)
			})
		})
	})
}

func TestOverlay(t *testing.T) {
	Convey("UpdateCommand", t, func() {
		Convey("should list only the options that are set", func() {
			So(UpdateCommand(mo.None[int](), mo.None[bool](), nil), ShouldEqual, "overlay ")
			So(UpdateCommand(mo.Some(255), mo.None[bool](), nil), ShouldEqual, "overlay alpha=255")
		})

		Convey("should append one invalidate per rect", func() {
			cmd := UpdateCommand(mo.Some(10), mo.Some(true), []Rect{{0, 0, 100, 50}, {5, 6, 7, 8}})
			So(cmd, ShouldEqual, "overlay alpha=10,visible=1,invalidate=0:0:100:50,invalidate=5:6:7:8")
		})

		Convey("the canvas segment should hold a header and 2000x2000 BGR32 pixels", func() {
			So(OverlaySize, ShouldEqual, 2000*2000*4+16)
		})
	})
}

func TestKeys(t *testing.T) {
	Convey("Keys", t, func() {
		osd, frame := Keys("1234-1")

		Convey("should be stable per instance", func() {
			o2, f2 := Keys("1234-1")
			So(o2, ShouldEqual, osd)
			So(f2, ShouldEqual, frame)
		})

		Convey("should differ between the two channels", func() {
			So(osd, ShouldNotEqual, frame)
		})

		Convey("should fit in seven hex digits", func() {
			So(osd, ShouldBeBetweenOrEqual, 0, 0xfffffff)
			So(frame, ShouldBeBetweenOrEqual, 0, 0xfffffff)
		})

		Convey("instance ids should never repeat", func() {
			So(NewInstanceID(), ShouldNotEqual, NewInstanceID())
		})
	})

	Convey("Payload sizes", t, func() {
		So(YV12.PayloadSize(4, 2), ShouldEqual, 8+2*2*1)
		So(YV12.PayloadSize(3, 3), ShouldEqual, 9+2*2*2)
		So(BGR32.PayloadSize(2, 2), ShouldEqual, 16)
		So(YV12.PayloadSize(0, 5), ShouldEqual, 0)
	})
}
