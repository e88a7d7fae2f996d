package capability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/projector-cli/projector/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

const binary = "/usr/bin/mplayer"

func installBinary(modTime time.Time) {
	fs := filesystem.API()
	lo.Must0(fs.MkdirAll("/usr/bin", 0o755))
	lo.Must0(fs.WriteFile(binary, []byte("#!"), 0o755))
	lo.Must0(fs.Chtimes(binary, modTime, modTime))
}

func countingProbe(calls *atomic.Int32, version string) Probe {
	return func(context.Context, string) (Info, error) {
		calls.Add(1)
		info := NewInfo()
		info.Version = version
		info.VideoFilters["outbuf"] = "shared memory output"
		return info, nil
	}
}

func TestCache(t *testing.T) {
	Convey("Given a memory cache with one entry", t, func() {
		c := NewMemory()
		k := Key{Path: binary, ModTime: 10}
		So(c.Set(k, Info{Version: "1.5"}), ShouldBeNil)

		Convey("The same key should hit", func() {
			So(c.Get(k).MustGet().Version, ShouldEqual, "1.5")
		})

		Convey("A newer build of the same path should miss", func() {
			So(c.Get(Key{Path: binary, ModTime: 11}).IsAbsent(), ShouldBeTrue)
		})

		Convey("Another path should miss", func() {
			So(c.Get(Key{Path: "/opt/mplayer", ModTime: 10}).IsAbsent(), ShouldBeTrue)
		})
	})

	Convey("Given a persistent cache", t, func() {
		path := "/cache/capabilities.json"
		k := Key{Path: binary, ModTime: 42}

		first := NewPersistent(path)
		So(first.Set(k, Info{Version: "1.4", Keylist: []string{"ENTER"}}), ShouldBeNil)

		Convey("A fresh instance should read the entry back from disk", func() {
			second := NewPersistent(path)
			info := second.Get(k).MustGet()
			So(info.Version, ShouldEqual, "1.4")
			So(info.Keylist, ShouldResemble, []string{"ENTER"})
			So(second.Get(Key{Path: binary, ModTime: 43}).IsAbsent(), ShouldBeTrue)
		})
	})
}

func TestFetcher(t *testing.T) {
	Convey("Given an installed engine binary", t, func() {
		built := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		installBinary(built)

		var calls atomic.Int32
		f := NewFetcher(NewMemory(), countingProbe(&calls, "1.5"))

		Convey("Fetch should probe once and then serve from cache", func() {
			info, err := f.Fetch(context.Background(), binary)
			So(err, ShouldBeNil)
			So(info.Version, ShouldEqual, "1.5")
			So(info.HasVideoFilter("outbuf"), ShouldBeTrue)
			So(info.ModTime, ShouldEqual, built.UnixNano())

			_, err = f.Fetch(context.Background(), binary)
			So(err, ShouldBeNil)
			So(calls.Load(), ShouldEqual, 1)

			Convey("Replacing the binary should trigger a new probe", func() {
				installBinary(built.Add(time.Hour))
				_, err := f.Fetch(context.Background(), binary)
				So(err, ShouldBeNil)
				So(calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("A missing binary should fail without probing", func() {
			_, err := f.Fetch(context.Background(), "/usr/bin/nothing")
			So(errors.Is(err, ErrNoBinary), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 0)
		})

		Convey("Probe errors should be returned and not cached", func() {
			failing := NewFetcher(NewMemory(), func(context.Context, string) (Info, error) {
				calls.Add(1)
				return Info{}, errors.New("exec format error")
			})
			_, err := failing.Fetch(context.Background(), binary)
			So(err, ShouldNotBeNil)
			_, _ = failing.Fetch(context.Background(), binary)
			So(calls.Load(), ShouldEqual, 2)
		})

		Convey("Concurrent fetches should share one probe", func() {
			release := make(chan struct{})
			slow := NewFetcher(NewMemory(), func(context.Context, string) (Info, error) {
				calls.Add(1)
				<-release
				return Info{Version: "slow"}, nil
			})

			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = slow.Fetch(context.Background(), binary)
				}()
			}

			time.Sleep(50 * time.Millisecond)
			close(release)
			wg.Wait()
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("FetchAsync should deliver exactly one result", func() {
			ch := f.FetchAsync(context.Background(), binary)
			res := <-ch
			So(res.Err, ShouldBeNil)
			So(res.Info.Version, ShouldEqual, "1.5")

			_, open := <-ch
			So(open, ShouldBeFalse)
		})
	})
}
