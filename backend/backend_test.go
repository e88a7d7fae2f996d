package backend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/projector-cli/projector/mrl"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func static(d Descriptor, calls *atomic.Int32) Probe {
	return func(context.Context) (Descriptor, error) {
		if calls != nil {
			calls.Add(1)
		}
		return d, nil
	}
}

func fixture(calls *atomic.Int32) *Registry[string] {
	r := NewRegistry[string]()

	lo.Must0(r.Register("mplayer", "mplayer impl", static(Descriptor{
		Capabilities: Capabilities(CapOSD, CapCanvas),
		Schemes:      []string{"file", "dvd", "http"},
		Extensions:   []string{"avi", "vob"},
	}, calls)))

	lo.Must0(r.Register("mpv", "mpv impl", static(Descriptor{
		Capabilities: Capabilities(CapDVDMenus, CapDeinterlace),
		Schemes:      []string{"file", "dvd", "https"},
		Extensions:   []string{"mkv"},
	}, calls)))

	return r
}

func selectID(r *Registry[string], opts ...SelectOption) string {
	return r.Select(context.Background(), opts...).OrElse("")
}

func TestRegister(t *testing.T) {
	Convey("Given a registry with two backends", t, func() {
		r := fixture(nil)

		Convey("registering a taken id should fail", func() {
			err := r.Register("mpv", "again", nil)
			So(errors.Is(err, ErrDuplicate), ShouldBeTrue)
		})

		Convey("ids should keep registration order", func() {
			So(r.IDs(), ShouldResemble, []string{"mplayer", "mpv"})
		})

		Convey("implementations should be retrievable", func() {
			So(r.Get("mpv").MustGet(), ShouldEqual, "mpv impl")
			So(r.Get("vlc").IsAbsent(), ShouldBeTrue)
			So(r.Has("mplayer"), ShouldBeTrue)
		})

		Convey("descriptors should load lazily", func() {
			So(r.Descriptor("mpv").MustGet().Loaded, ShouldBeFalse)
			ds := r.Descriptors(context.Background())
			So(ds, ShouldHaveLength, 2)
			So(ds[1].Loaded, ShouldBeTrue)
			So(ds[1].ID, ShouldEqual, "mpv")
			So(ds[1].CapabilityList(), ShouldResemble, []Capability{CapDeinterlace, CapDVDMenus})
		})
	})
}

func TestSelect(t *testing.T) {
	Convey("Given a registry with two backends", t, func() {
		var calls atomic.Int32
		r := fixture(&calls)

		Convey("probes should run once no matter how often we select", func() {
			selectID(r)
			selectID(r, WithReference(mrl.MustParse("/a.mkv")))
			So(calls.Load(), ShouldEqual, 2)
		})

		Convey("with nothing asked for", func() {
			Convey("the preferred backend should win", func() {
				So(selectID(r, WithPreferred("mpv")), ShouldEqual, "mpv")
			})

			Convey("an unknown preference should fall back to the first backend", func() {
				So(selectID(r, WithPreferred("vlc")), ShouldEqual, "mplayer")
			})
		})

		Convey("a forced backend should win over every filter", func() {
			ref := mrl.MustParse("https://example.com/a.mkv")
			So(selectID(r, WithReference(ref), WithForced("mplayer"), WithExclude("mplayer"), WithCapabilities(CapDVDMenus)), ShouldEqual, "mplayer")
		})

		Convey("an unregistered forced backend should fall through to filtering", func() {
			So(selectID(r, WithReference(mrl.MustParse("/a.mkv")), WithForced("vlc")), ShouldEqual, "mpv")
		})

		Convey("a scheme nobody handles should match nothing", func() {
			So(r.Select(context.Background(), WithReference(mrl.MustParse("rtsp://cam/live"))).IsAbsent(), ShouldBeTrue)
		})

		Convey("the scheme filter should apply", func() {
			So(selectID(r, WithReference(mrl.MustParse("http://example.com/a.mkv"))), ShouldEqual, "mplayer")
		})

		Convey("the preferred extension should beat registration order", func() {
			So(selectID(r, WithReference(mrl.MustParse("/movies/a.mkv"))), ShouldEqual, "mpv")
			So(selectID(r, WithReference(mrl.MustParse("/movies/a.avi"))), ShouldEqual, "mplayer")
		})

		Convey("the preferred extension should beat the preferred id", func() {
			So(selectID(r, WithReference(mrl.MustParse("/movies/a.avi")), WithPreferred("mpv")), ShouldEqual, "mplayer")
		})

		Convey("disc references should prefer disc menus", func() {
			So(selectID(r, WithReference(mrl.MustParse("dvd:///2"))), ShouldEqual, "mpv")
		})

		Convey("the preferred id should break a tie", func() {
			So(selectID(r, WithReference(mrl.MustParse("/a.ogg"))), ShouldEqual, "mplayer")
			So(selectID(r, WithReference(mrl.MustParse("/a.ogg")), WithPreferred("mpv")), ShouldEqual, "mpv")
		})

		Convey("excluded backends should be skipped", func() {
			So(selectID(r, WithReference(mrl.MustParse("/a.mkv")), WithExclude("mpv")), ShouldEqual, "mplayer")
			So(selectID(r, WithExclude("mplayer")), ShouldEqual, "mpv")
			So(r.Select(context.Background(), WithExclude("mplayer", "mpv")).IsAbsent(), ShouldBeTrue)
		})

		Convey("required capabilities should be a subset match", func() {
			So(selectID(r, WithCapabilities(CapCanvas)), ShouldEqual, "mplayer")
			So(selectID(r, WithCapabilities(CapDeinterlace, CapDVDMenus)), ShouldEqual, "mpv")
			So(r.Select(context.Background(), WithCapabilities(CapCanvas, CapDVDMenus)).IsAbsent(), ShouldBeTrue)
		})
	})

	Convey("A backend whose probe fails", t, func() {
		r := NewRegistry[string]()
		lo.Must0(r.Register("broken", "x", func(context.Context) (Descriptor, error) {
			return Descriptor{}, errors.New("no binary")
		}))

		Convey("should be loaded with nothing advertised", func() {
			So(r.Select(context.Background(), WithReference(mrl.MustParse("/a.avi"))).IsAbsent(), ShouldBeTrue)
			d := r.Descriptor("broken").MustGet()
			So(d.Loaded, ShouldBeTrue)
			So(d.Schemes, ShouldBeEmpty)
		})

		Convey("should still be returned on the unfiltered path", func() {
			So(selectID(r), ShouldEqual, "broken")
		})
	})

	Convey("An empty registry should match nothing", t, func() {
		So(NewRegistry[int]().Select(context.Background()).IsAbsent(), ShouldBeTrue)
	})
}
