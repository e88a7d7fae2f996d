package player

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/shm"
	"github.com/samber/lo"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

const wait = 5 * time.Second

type fakeProc struct {
	args   []string
	lines  chan engine.Line
	exited chan engine.ExitStatus
	alive  atomic.Bool
	stops  atomic.Int32
	once   sync.Once

	mu       sync.Mutex
	commands []string
}

func newFakeProc(args []string) *fakeProc {
	p := &fakeProc{
		args:   args,
		lines:  make(chan engine.Line),
		exited: make(chan engine.ExitStatus, 1),
	}
	p.alive.Store(true)
	return p
}

func (p *fakeProc) Lines() <-chan engine.Line        { return p.lines }
func (p *fakeProc) Exited() <-chan engine.ExitStatus { return p.exited }
func (p *fakeProc) IsAlive() bool                    { return p.alive.Load() }
func (p *fakeProc) Kill()                            { p.exit(engine.ExitStatus{Code: -1, Signaled: true, Signal: "killed"}) }

func (p *fakeProc) WriteCommand(text string) bool {
	if !p.alive.Load() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, text)
	return true
}

func (p *fakeProc) RequestStop() {
	p.stops.Add(1)
	p.WriteCommand("quit")
	p.WriteCommand("quit")
}

func (p *fakeProc) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

func (p *fakeProc) say(lines ...string) {
	for _, text := range lines {
		select {
		case p.lines <- engine.Line{Text: text}:
		case <-time.After(wait):
			panic("session stopped reading: " + text)
		}
	}
}

func (p *fakeProc) exit(status engine.ExitStatus) {
	p.once.Do(func() {
		p.alive.Store(false)
		close(p.lines)
		p.exited <- status
		close(p.exited)
	})
}

type spawns struct {
	ch    chan *fakeProc
	mu    sync.Mutex
	procs []*fakeProc
}

func newSpawns() *spawns {
	return &spawns{ch: make(chan *fakeProc, 16)}
}

func (sp *spawns) spawn(_ context.Context, _ string, args []string, _ ...engine.Option) (Proc, error) {
	p := newFakeProc(args)

	sp.mu.Lock()
	sp.procs = append(sp.procs, p)
	sp.mu.Unlock()

	sp.ch <- p
	return p, nil
}

func (sp *spawns) next() *fakeProc {
	select {
	case p := <-sp.ch:
		return p
	case <-time.After(wait):
		panic("no engine spawned")
	}
}

func (sp *spawns) none(d time.Duration) bool {
	select {
	case <-sp.ch:
		return false
	case <-time.After(d):
		return true
	}
}

func (sp *spawns) killAll() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for _, p := range sp.procs {
		p.exit(engine.ExitStatus{})
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 256)}
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.ch <- ev:
	default:
	}
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.events, func(ev Event, _ int) EventKind { return ev.Kind })
}

func (r *recorder) count(kind EventKind) int {
	return lo.Count(r.kinds(), kind)
}

func (r *recorder) last(kind EventKind) Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, _, _ := lo.FindLastIndexOf(r.events, func(ev Event) bool { return ev.Kind == kind })
	return ev
}

func (r *recorder) wait(kind EventKind) Event {
	deadline := time.After(wait)
	for {
		select {
		case ev := <-r.ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			panic("no " + kind.String() + " event")
		}
	}
}

// flush returns once every request queued before it has been handled.
func flush(s *Session) {
	done := make(chan struct{})
	lo.Must0(s.enqueue(func() { close(done) }))
	<-done
}

// installShell puts the resolved shell into the in-memory filesystem so the
// capability fetcher can stat it.
func installShell() string {
	path := lo.Must(exec.LookPath("sh"))
	fs := filesystem.API()
	lo.Must0(fs.MkdirAll(filepath.Dir(path), 0o755))
	lo.Must0(fs.WriteFile(path, []byte("#!"), 0o755))
	return path
}

func probedInfo() capability.Info {
	info := capability.NewInfo()
	info.Version = "1.5"
	info.VideoFilters["outbuf"] = "shared memory output"
	info.VideoFilters["overlay"] = "shared memory overlay"
	return info
}

type fixture struct {
	session  *Session
	spawns   *spawns
	events   *recorder
	provider *shm.Memory
}

func newFixture(probe capability.Probe, opts ...Option) *fixture {
	installShell()
	if probe == nil {
		probe = func(context.Context, string) (capability.Info, error) { return probedInfo(), nil }
	}

	f := &fixture{spawns: newSpawns(), events: newRecorder(), provider: shm.NewMemory()}
	base := []Option{
		WithSpawner(f.spawns.spawn),
		WithHandler(f.events.handle),
		WithFetcher(capability.NewFetcher(capability.NewMemory(), probe)),
		WithProvider(f.provider),
		WithPollInterval(2 * time.Millisecond),
		WithStopTimeout(50 * time.Millisecond),
	}

	f.session = lo.Must(New(NewMPlayer("sh"), append(base, opts...)...))
	return f
}

func (f *fixture) close() {
	f.spawns.killAll()
	_ = f.session.Close()
}

// opened runs the identify pass to completion.
func (f *fixture) opened(ref string, identify ...string) {
	lo.Must0(f.session.Open(mrl.MustParse(ref)))
	probe := f.spawns.next()
	probe.say(identify...)
	probe.exit(engine.ExitStatus{})
	f.events.wait(EventOpen)
	flush(f.session)
}

// playing opens ref and brings playback to the Playing state.
func (f *fixture) playing(ref string) *fakeProc {
	f.opened(ref, "ID_AUDIO_NCH=2")
	lo.Must0(f.session.Play())
	p := f.spawns.next()
	p.say("Starting playback...")
	flush(f.session)
	return p
}

func TestNew(t *testing.T) {
	Convey("An engine binary that cannot be found should be fatal", t, func() {
		_, err := New(NewMPlayer("/nonexistent/mplayer"))
		So(errors.Is(err, ErrEngineNotFound), ShouldBeTrue)
	})
}

func TestOpen(t *testing.T) {
	Convey("Given a new session", t, func() {
		f := newFixture(nil)
		Reset(f.close)

		s := f.session
		So(s.State(), ShouldEqual, NotRunning)

		Convey("Open should run the identify pass", func() {
			lo.Must0(s.Open(mrl.MustParse("/movies/a.avi")))
			So(s.State(), ShouldEqual, Opening)

			probe := f.spawns.next()
			So(probe.args, ShouldContain, "-identify")
			So(probe.args[len(probe.args)-1], ShouldEqual, "/movies/a.avi")

			Convey("and a second Open should be refused", func() {
				So(errors.Is(s.Open(mrl.MustParse("/b.avi")), ErrInvalidState), ShouldBeTrue)
			})

			Convey("and the identify output should become the stream info", func() {
				probe.say("ID_VIDEO_WIDTH=640", "ID_VIDEO_HEIGHT=480", "ID_LENGTH=12,5", "ID_BOGUS=1", "noise")
				probe.exit(engine.ExitStatus{})

				ev := f.events.wait(EventOpen)
				So(ev.Info.Int(protocol.FieldWidth), ShouldEqual, 640)
				So(ev.Info.Float(protocol.FieldLength), ShouldEqual, 12.5)

				flush(s)
				So(s.State(), ShouldEqual, Open)
				So(f.events.kinds(), ShouldResemble, []EventKind{EventOpen, EventStreamChanged})
				So(s.StreamInfo().Int(protocol.FieldHeight), ShouldEqual, 480)
			})

			Convey("and missing media should report an error and return to not running", func() {
				probe.say("File not found: '/movies/a.avi'")
				probe.exit(engine.ExitStatus{Code: 1})
				flush(s)

				So(s.State(), ShouldEqual, NotRunning)
				So(f.events.count(EventOpen), ShouldEqual, 0)
				So(errors.Is(f.events.last(EventError).Err, ErrMediaNotFound), ShouldBeTrue)
			})

			Convey("and Stop should end the identify pass", func() {
				lo.Must0(s.Stop())
				flush(s)
				So(s.State(), ShouldEqual, Shutdown)
				So(probe.stops.Load(), ShouldEqual, 1)

				probe.exit(engine.ExitStatus{})
				f.events.wait(EventQuit)
				flush(s)
				So(s.State(), ShouldEqual, NotRunning)
				So(f.events.count(EventOpen), ShouldEqual, 0)
			})
		})

		Convey("control calls before Open should be usage errors", func() {
			So(errors.Is(s.Play(), ErrInvalidState), ShouldBeTrue)
			So(errors.Is(s.Pause(), ErrInvalidState), ShouldBeTrue)
			So(errors.Is(s.Resume(), ErrInvalidState), ShouldBeTrue)
			So(errors.Is(s.Seek(10, SeekRelative), ErrInvalidState), ShouldBeTrue)
			So(errors.Is(s.UpdateOverlay(OverlayUpdate{}), ErrInvalidState), ShouldBeTrue)
			So(s.Stop(), ShouldBeNil)
		})

		Convey("calls after Close should fail", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Open(mrl.MustParse("/a.avi")), ShouldEqual, ErrClosed)
		})
	})
}

func TestPlayback(t *testing.T) {
	Convey("Given an opened session", t, func() {
		f := newFixture(nil)
		Reset(f.close)
		s := f.session

		f.opened("/movies/a.avi", "ID_AUDIO_NCH=2")
		So(errors.Is(s.Pause(), ErrInvalidState), ShouldBeTrue)
		So(errors.Is(s.Seek(1, SeekAbsolute), ErrInvalidState), ShouldBeTrue)

		lo.Must0(s.Play())
		p := f.spawns.next()
		flush(s)

		Convey("Play should spawn the playback run with the probed filters", func() {
			So(s.State(), ShouldEqual, Loading)
			So(p.args, ShouldContain, "-slave")
			vf := p.args[lo.IndexOf(p.args, "-vf")+1]
			So(vf, ShouldStartWith, "outbuf=")
			So(vf, ShouldContainSubstring, ",overlay=")
		})

		Convey("the end-of-stream marker should be ignored while loading", func() {
			p.say("EOF code: 1")
			flush(s)
			So(f.events.count(EventEnd), ShouldEqual, 0)
		})

		Convey("the first tick while loading should start playback", func() {
			p.say("A:   0.1 V:   0.1 A-V:  0.000")
			flush(s)
			So(s.State(), ShouldEqual, Playing)
			So(f.events.count(EventStart), ShouldEqual, 1)
			So(p.Commands(), ShouldContain, "outbuf 1")
		})

		Convey("once playing", func() {
			p.say("Starting playback...")
			flush(s)
			So(s.State(), ShouldEqual, Playing)
			So(lo.LastOrEmpty(f.events.kinds()), ShouldEqual, EventStart)

			Convey("ticks should move the position", func() {
				p.say("A:   1.0 V:   1.0", "A:   1,5 V:   1.5")
				flush(s)
				So(s.Position(), ShouldEqual, 1.5)
				So(f.events.count(EventTick), ShouldEqual, 2)
				So(f.events.count(EventSeek), ShouldEqual, 0)

				Convey("and a jump should be reported as a seek", func() {
					p.say("A:  30.0 V:  30.0")
					flush(s)
					So(f.events.count(EventSeek), ShouldEqual, 1)

					p.say("A:   5.0 V:   5.0")
					flush(s)
					So(f.events.count(EventSeek), ShouldEqual, 2)
				})
			})

			Convey("the pause marker should pause exactly once", func() {
				p.say("  =====  PAUSE  =====")
				flush(s)
				So(s.State(), ShouldEqual, Paused)
				So(f.events.count(EventPause), ShouldEqual, 1)

				p.say("  =====  PAUSE  =====")
				flush(s)
				So(s.State(), ShouldEqual, Paused)
				So(f.events.count(EventPause), ShouldEqual, 1)

				Convey("and a later tick should resume", func() {
					p.say("A:   2.0 V:   2.0")
					flush(s)
					So(s.State(), ShouldEqual, Playing)
					So(f.events.count(EventPlay), ShouldEqual, 1)
				})

				Convey("and a seek while paused should absorb the next tick", func() {
					lo.Must0(s.Seek(60, SeekAbsolute))
					flush(s)
					So(p.Commands(), ShouldContain, "seek 60.000000 2")

					p.say("A:  60.0 V:  60.0")
					flush(s)
					So(s.State(), ShouldEqual, Paused)
					So(f.events.count(EventSeek), ShouldEqual, 1)
					So(s.Position(), ShouldEqual, 60.0)
				})

				Convey("and Play should resume", func() {
					lo.Must0(s.Play())
					flush(s)
					So(lo.LastOrEmpty(p.Commands()), ShouldEqual, "pause")
					So(f.events.count(EventPauseToggle), ShouldEqual, 1)
				})
			})

			Convey("Pause should only send the toggle", func() {
				lo.Must0(s.Pause())
				flush(s)
				So(lo.LastOrEmpty(p.Commands()), ShouldEqual, "pause")
				So(s.State(), ShouldEqual, Playing)
				So(errors.Is(s.Resume(), ErrInvalidState), ShouldBeTrue)
			})

			Convey("seeks should use the engine's seek types", func() {
				lo.Must0(s.Seek(-10, SeekRelative))
				lo.Must0(s.Seek(50, SeekPercentage))
				flush(s)
				So(p.Commands(), ShouldContain, "seek -10.000000 0")
				So(p.Commands(), ShouldContain, "seek 50.000000 1")
			})

			Convey("the audio delay should be sent negated", func() {
				lo.Must0(s.SetAudioDelay(0.25))
				flush(s)
				So(lo.LastOrEmpty(p.Commands()), ShouldEqual, "audio_delay -0.250000 1")
			})

			Convey("a window change should wait for the next playback", func() {
				sent := len(p.Commands())
				lo.Must0(s.WindowChanged(Window{ID: 0x9, Width: 640, Height: 480}))
				flush(s)
				So(p.Commands(), ShouldHaveLength, sent)
				So(s.State(), ShouldEqual, Playing)
				So(s.window.OrEmpty().ID, ShouldEqual, 0x9)
			})

			Convey("the end-of-stream marker should be reported", func() {
				p.say("EOF code: 1")
				flush(s)
				So(f.events.count(EventEnd), ShouldEqual, 1)

				Convey("and a clean exit should quit", func() {
					p.exit(engine.ExitStatus{})
					f.events.wait(EventQuit)
					flush(s)
					So(s.State(), ShouldEqual, NotRunning)
				})
			})

			Convey("an unexpected exit should be a crash, never a quit", func() {
				status := engine.ExitStatus{Code: -1, Signaled: true, Signal: "segmentation fault"}
				p.exit(status)

				ev := f.events.wait(EventCrashed)
				So(ev.Exit, ShouldResemble, status)
				flush(s)
				So(s.State(), ShouldEqual, NotRunning)
				So(f.events.count(EventQuit), ShouldEqual, 0)
			})

			Convey("Stop should shut down and quit on exit", func() {
				lo.Must0(s.Stop())
				flush(s)
				So(s.State(), ShouldEqual, Shutdown)
				So(p.stops.Load(), ShouldEqual, 1)
				So(lo.Count(p.Commands(), "quit"), ShouldEqual, 2)

				p.exit(engine.ExitStatus{Code: 1})
				f.events.wait(EventQuit)
				flush(s)
				So(s.State(), ShouldEqual, NotRunning)
				So(f.events.count(EventCrashed), ShouldEqual, 0)

				Convey("and the session should open again", func() {
					So(s.Open(mrl.MustParse("/movies/b.avi")), ShouldBeNil)
					So(f.spawns.next().args, ShouldContain, "/movies/b.avi")
				})
			})

			Convey("a fatal engine line should be reported", func() {
				p.say("FATAL: Could not initialize video filters")
				flush(s)
				So(errors.Is(f.events.last(EventError).Err, ErrEngineFatal), ShouldBeTrue)
			})

			Convey("geometry and aspect lines should update the stream info", func() {
				p.say("VO: [xv] 720x576 => 1024x576 Planar YV12", "Movie-Aspect is 1,78:1 - prescaling to correct movie aspect.")
				flush(s)
				So(s.StreamInfo().Int(protocol.FieldWidth), ShouldEqual, 1024)
				So(s.StreamInfo().Float(protocol.FieldAspect), ShouldEqual, 1.78)
				So(f.events.count(EventStreamChanged), ShouldBeGreaterThanOrEqualTo, 3)
			})
		})
	})
}

func TestPending(t *testing.T) {
	Convey("Given an engine whose capabilities are still being probed", t, func() {
		release := make(chan struct{})
		var once sync.Once
		probe := func(ctx context.Context, _ string) (capability.Info, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return probedInfo(), nil
		}

		f := newFixture(probe)
		Reset(func() {
			once.Do(func() { close(release) })
			f.close()
		})
		s := f.session

		f.opened("/movies/a.avi")
		lo.Must0(s.Play())
		flush(s)

		Convey("Play should wait in pending", func() {
			So(s.State(), ShouldEqual, Pending)
			So(s.Play(), ShouldBeNil)
			So(f.spawns.none(20*time.Millisecond), ShouldBeTrue)

			Convey("and start once the probe completes", func() {
				once.Do(func() { close(release) })
				p := f.spawns.next()
				So(p.args, ShouldContain, "-slave")
				flush(s)
				So(s.State(), ShouldEqual, Loading)
			})

			Convey("and Stop should discard the recorded play", func() {
				lo.Must0(s.Stop())
				f.events.wait(EventQuit)
				flush(s)
				So(s.State(), ShouldEqual, NotRunning)

				once.Do(func() { close(release) })
				So(f.spawns.none(50*time.Millisecond), ShouldBeTrue)
				So(s.State(), ShouldEqual, NotRunning)
			})
		})
	})
}

func TestSharedMemory(t *testing.T) {
	Convey("Given a playing session", t, func() {
		f := newFixture(nil)
		Reset(f.close)
		s := f.session
		p := f.playing("/movies/a.avi")

		Convey("frames exported by the engine should be delivered one at a time", func() {
			engineSide := shm.NewChannel(f.provider, s.frameKey, shm.YV12)
			So(engineSide.Create(shm.YV12.SegmentSize(4, 2)), ShouldBeNil)

			lo.Must0(s.SetFrameOutput(true, true, 0, 0))
			flush(s)
			So(lo.LastOrEmpty(p.Commands()), ShouldEqual, "outbuf 3")

			p.say("outbuf: using shmem key 0x1234")
			flush(s)

			pixels := make([]byte, shm.YV12.PayloadSize(4, 2))
			So(engineSide.Publish(shm.Frame{Header: shm.Header{Width: 4, Height: 2, Aspect: 2}, Pixels: pixels}), ShouldBeTrue)

			ev := f.events.wait(EventFrameReady)
			So(ev.Frame.Width, ShouldEqual, 4)
			So(ev.Frame.Height, ShouldEqual, 2)
			So(engineSide.Writable(), ShouldBeFalse)

			lo.Must0(s.ReleaseFrame())
			flush(s)
			So(engineSide.Writable(), ShouldBeTrue)
			So(f.events.count(EventFrameReady), ShouldEqual, 1)

			Convey("and a vanished segment should not stop the session", func() {
				So(engineSide.Remove(), ShouldBeNil)
				time.Sleep(10 * time.Millisecond)
				flush(s)
				So(s.State(), ShouldEqual, Playing)
			})
		})

		Convey("the overlay canvas should accept one update at a time", func() {
			engineSide := shm.NewChannel(f.provider, s.osdKey, shm.BGR32)
			So(engineSide.Create(shm.BGR32.SegmentSize(4, 4)), ShouldBeNil)

			p.say("overlay: using 4x4 canvas")
			ev := f.events.wait(EventOSDConfigure)
			So(ev.Width, ShouldEqual, 4)
			flush(s)
			So(s.OverlayWritable(), ShouldBeTrue)

			Convey("canvases it cannot hold should be refused up front", func() {
				err := s.UpdateOverlay(OverlayUpdate{Pixels: make([]byte, 64), Width: shm.CanvasWidth + 1, Height: 4})
				So(errors.Is(err, shm.ErrGeometry), ShouldBeTrue)

				err = s.UpdateOverlay(OverlayUpdate{Pixels: make([]byte, 10), Width: 4, Height: 4})
				So(errors.Is(err, shm.ErrGeometry), ShouldBeTrue)

				flush(s)
				So(s.OverlayWritable(), ShouldBeTrue)
			})

			update := OverlayUpdate{
				Alpha:  mo.Some(128),
				Rects:  []shm.Rect{{X: 0, Y: 0, W: 4, H: 4}},
				Pixels: make([]byte, 64),
				Width:  4,
				Height: 4,
			}
			lo.Must0(s.UpdateOverlay(update))
			flush(s)
			So(lo.LastOrEmpty(p.Commands()), ShouldEqual, "overlay alpha=128,invalidate=0:0:4:4")
			So(s.OverlayWritable(), ShouldBeFalse)

			sent := len(p.Commands())
			lo.Must0(s.UpdateOverlay(update))
			flush(s)
			So(p.Commands(), ShouldHaveLength, sent)

			Convey("until the engine has read the canvas", func() {
				_, ok := engineSide.Poll()
				So(ok, ShouldBeTrue)
				engineSide.Release()

				deadline := time.Now().Add(wait)
				for !s.OverlayWritable() && time.Now().Before(deadline) {
					time.Sleep(2 * time.Millisecond)
				}
				So(s.OverlayWritable(), ShouldBeTrue)
			})
		})

		Convey("the key binding file should be removed once the engine read it", func() {
			conf, _ := lo.Find(p.args, func(a string) bool { return strings.HasPrefix(a, "conf=") })
			path := strings.TrimPrefix(conf, "conf=")
			So(lo.Must(filesystem.API().Exists(path)), ShouldBeTrue)

			p.say("Parsing input config file " + path)
			flush(s)
			So(lo.Must(filesystem.API().Exists(path)), ShouldBeFalse)
		})
	})
}
