package protocol

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMPlayerGrammar(t *testing.T) {
	g := MPlayer()

	Convey("Given the mplayer grammar", t, func() {
		Convey("Position ticks", func() {
			ev := g.Classify("A: 12.345")
			So(ev.Kind, ShouldEqual, Tick)
			So(ev.Position, ShouldAlmostEqual, 12.345)

			Convey("should accept the decimal comma", func() {
				ev := g.Classify("A: 12,345")
				So(ev.Kind, ShouldEqual, Tick)
				So(ev.Position, ShouldAlmostEqual, 12.345)
			})

			Convey("should read full status lines", func() {
				ev := g.Classify("A:   2.3 V:   2.4 A-V: -0.001 ct:  0.000  57/ 57  3%  1%  0.4% 0 0")
				So(ev.Kind, ShouldEqual, Tick)
				So(ev.Position, ShouldAlmostEqual, 2.3)

				ev = g.Classify("V:  61.0   1525/1525  4%  1%  0.0% 0 0")
				So(ev.Position, ShouldAlmostEqual, 61.0)
			})
		})

		Convey("Identification lines", func() {
			ev := g.Classify("ID_VIDEO_WIDTH=720")
			So(ev.Kind, ShouldEqual, Info)
			So(ev.Key, ShouldEqual, FieldWidth)
			So(ev.Value, ShouldEqual, 720)

			ev = g.Classify("ID_LENGTH=5423,70")
			So(ev.Key, ShouldEqual, FieldLength)
			So(ev.Value, ShouldAlmostEqual, 5423.70)

			ev = g.Classify("ID_FILENAME=/srv/media/a=b.avi")
			So(ev.Key, ShouldEqual, FieldFilename)
			So(ev.Value, ShouldEqual, "/srv/media/a=b.avi")

			ev = g.Classify("ID_VIDEO_FORMAT=0x10000002")
			So(ev.Value, ShouldEqual, "0x10000002")

			Convey("unknown keys and bad values should be ignored", func() {
				So(g.Classify("ID_SEEKABLE=1").Kind, ShouldEqual, Diagnostic)
				So(g.Classify("ID_VIDEO_WIDTH=wide").Kind, ShouldEqual, Diagnostic)
			})
		})

		Convey("Markers", func() {
			So(g.Classify("  =====  PAUSE  =====").Kind, ShouldEqual, Pause)
			So(g.Classify("Starting playback...").Kind, ShouldEqual, Started)
			So(g.Classify("EOF code: 1  ").Kind, ShouldEqual, EndOfStream)
			So(g.Classify("File not found: 'missing.avi'").Kind, ShouldEqual, FileNotFound)
			So(g.Classify("FATAL: Could not initialize video filters (-vf) or video output (-vo).").Kind, ShouldEqual, Fatal)
		})

		Convey("Video output geometry", func() {
			ev := g.Classify("VO: [xv] 720x576 => 1024x576 Planar YV12")
			So(ev.Kind, ShouldEqual, Geometry)
			So(ev.Width, ShouldEqual, 1024)
			So(ev.Height, ShouldEqual, 576)
			So(ev.Aspect, ShouldAlmostEqual, 1024.0/576.0)

			So(g.Classify("VO: [xv] no size yet").Kind, ShouldEqual, Diagnostic)
		})

		Convey("Movie aspect", func() {
			ev := g.Classify("Movie-Aspect is 1,78:1 - prescaling to correct movie aspect.")
			So(ev.Kind, ShouldEqual, Aspect)
			So(ev.Aspect, ShouldAlmostEqual, 1.78)

			So(g.Classify("Movie-Aspect is undefined - no prescaling applied.").Kind, ShouldEqual, Diagnostic)
		})

		Convey("Shared buffer announcements", func() {
			ev := g.Classify("overlay: using 720x576 shmem key 0x1a2b3c4")
			So(ev.Kind, ShouldEqual, OverlayReady)
			So(ev.Width, ShouldEqual, 720)
			So(ev.Height, ShouldEqual, 576)

			So(g.Classify("overlay: reusing 720x576 buffer").Kind, ShouldEqual, Diagnostic)
			So(g.Classify("outbuf: using shmem key 0x7f00a1").Kind, ShouldEqual, FrameBufferReady)
			So(g.Classify("outbuf: configured").Kind, ShouldEqual, Diagnostic)
		})

		Convey("Input config consumption", func() {
			ev := g.Classify("Parsing input config file /tmp/projector/keys-123.conf")
			So(ev.Kind, ShouldEqual, InputConfigRead)
			So(ev.Path, ShouldEqual, "/tmp/projector/keys-123.conf")
		})

		Convey("Anything else should be diagnostic and keep the line", func() {
			ev := g.Classify("Playing /srv/media/a.avi.")
			So(ev.Kind, ShouldEqual, Diagnostic)
			So(ev.Line, ShouldEqual, "Playing /srv/media/a.avi.")

			So(g.Classify("").Kind, ShouldEqual, Diagnostic)
			So(g.Classify("A: garbage").Kind, ShouldEqual, Diagnostic)
		})

		Convey("Rules should be ordered by priority", func() {
			So(g.Names()[:5], ShouldResemble, []string{"tick", "identify", "pause", "started", "geometry"})
		})
	})
}

func TestClassifyRecovers(t *testing.T) {
	Convey("A panicking rule should not escape Classify", t, func() {
		g := Grammar{
			{Name: "boom", Match: func(line string) (Event, bool) {
				var m map[string]int
				m[line]++
				return Event{}, true
			}},
			prefix("started", "Starting", Started),
		}

		So(func() { g.Classify("Starting playback") }, ShouldNotPanic)
		So(g.Classify("Starting playback").Kind, ShouldEqual, Started)
	})
}
