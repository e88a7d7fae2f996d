package player

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/log"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/shm"
	"github.com/samber/mo"
)

const (
	requestBacklog      = 32
	DefaultPollInterval = 20 * time.Millisecond
)

// OverlayUpdate changes the on-screen display. Pixels, when set, replace the
// canvas content and are BGR32 at Width by Height.
type OverlayUpdate struct {
	Alpha   mo.Option[int]
	Visible mo.Option[bool]
	Rects   []shm.Rect

	Pixels        []byte
	Width, Height int
}

// check refuses pixels the overlay canvas cannot hold.
func (u OverlayUpdate) check() error {
	if u.Pixels == nil {
		return nil
	}
	if u.Width > shm.CanvasWidth || u.Height > shm.CanvasHeight {
		return fmt.Errorf("%w: %dx%d exceeds the %dx%d canvas", shm.ErrGeometry, u.Width, u.Height, shm.CanvasWidth, shm.CanvasHeight)
	}
	return u.frame().Check()
}

func (u OverlayUpdate) frame() shm.Frame {
	return shm.Frame{
		Header: shm.Header{Width: u.Width, Height: u.Height, Aspect: 1},
		Format: shm.BGR32,
		Pixels: u.Pixels,
	}
}

// snapshot is what callers may read without going through the session goroutine.
type snapshot struct {
	state           State
	position        float64
	info            protocol.StreamInfo
	ref             mrl.Ref
	openQueued      bool
	overlayWritable bool
}

// Session plays one reference at a time through an Engine.
type Session struct {
	engine   Engine
	binary   string
	grammar  protocol.Grammar
	fetcher  *capability.Fetcher
	provider shm.Provider
	spawner  Spawner
	handler  Handler
	log      *log.Logger

	instanceID       string
	osdKey, frameKey int
	pollInterval     time.Duration
	stopTimeout      time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	requests  chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	mirror snapshot

	// Everything below belongs to the session goroutine.
	proc       Proc
	probing    bool
	stopping   bool
	mediaError bool
	lines      <-chan engine.Line
	exited     <-chan engine.ExitStatus
	cleanup    []string

	capInfo     mo.Option[capability.Info]
	capResult   <-chan capability.Result
	pendingPlay bool

	window  mo.Option[Window]
	audio   Audio
	delay   float64
	filters Filters

	absorbTick     bool
	output         FrameOutputCommand
	outputSent     bool
	frames         *shm.Channel
	overlay        *shm.Channel
	frameDelivered bool
	ticker         *time.Ticker
}

// Option configures a Session.
type Option func(*Session)

func WithHandler(h Handler) Option {
	return func(s *Session) {
		s.handler = h
	}
}

// WithFetcher shares a capability fetcher, and its cache, between sessions.
func WithFetcher(f *capability.Fetcher) Option {
	return func(s *Session) {
		s.fetcher = f
	}
}

// WithProvider sets where frame and overlay segments live. Defaults to System V shared memory.
func WithProvider(p shm.Provider) Option {
	return func(s *Session) {
		s.provider = p
	}
}

func WithSpawner(sp Spawner) Option {
	return func(s *Session) {
		s.spawner = sp
	}
}

func WithAudio(a Audio) Option {
	return func(s *Session) {
		s.audio = a
	}
}

func WithAudioDelay(seconds float64) Option {
	return func(s *Session) {
		s.delay = seconds
	}
}

func WithWindow(w Window) Option {
	return func(s *Session) {
		s.window = mo.Some(w)
	}
}

func WithFilters(f Filters) Option {
	return func(s *Session) {
		s.filters = f
	}
}

// WithPollInterval sets how often shared memory is checked for frames.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithStopTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// New resolves the engine binary and starts the session goroutine.
func New(e Engine, opts ...Option) (*Session, error) {
	binary, err := exec.LookPath(e.Binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineNotFound, e.Binary(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		engine:       e,
		binary:       binary,
		grammar:      e.Grammar(),
		provider:     shm.SysV(),
		spawner:      spawnProcess,
		instanceID:   shm.NewInstanceID(),
		pollInterval: DefaultPollInterval,
		stopTimeout:  engine.DefaultStopTimeout,
		audio:        Audio{Channels: 2},
		output:       FrameOutputCommand{Video: true},
		ctx:          ctx,
		cancel:       cancel,
		requests:     make(chan func(), requestBacklog),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.osdKey, s.frameKey = shm.Keys(s.instanceID)
	s.log = log.For("player").With("engine", e.ID()).With("session", s.instanceID)

	if e.NeedsCapabilities() {
		if s.fetcher == nil {
			s.fetcher = capability.NewFetcher(capability.NewMemory(), e.Capabilities)
		}
		s.capResult = s.fetcher.FetchAsync(ctx, binary)
	}

	go s.run()
	return s, nil
}

// ID is unique per session and names its shared resources.
func (s *Session) ID() string {
	return s.instanceID
}

// Engine returns the id of the engine behind the session.
func (s *Session) Engine() string {
	return s.engine.ID()
}

// Binary returns the resolved engine path.
func (s *Session) Binary() string {
	return s.binary
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mirror.openQueued && s.mirror.state == NotRunning {
		return Opening
	}
	return s.mirror.state
}

// Position is the last reported playback position in seconds.
func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.position
}

// StreamInfo is a snapshot of what is known about the open stream.
func (s *Session) StreamInfo() protocol.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.info
}

// Ref is the reference last passed to Open.
func (s *Session) Ref() mrl.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.ref
}

// OverlayWritable reports whether an overlay update with pixels would be accepted now.
func (s *Session) OverlayWritable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.overlayWritable
}

// Open identifies ref. EventOpen follows once the engine has reported on it.
func (s *Session) Open(ref mrl.Ref) error {
	s.mu.Lock()
	if s.mirror.state != NotRunning || s.mirror.openQueued {
		state := s.mirror.state
		s.mu.Unlock()
		return invalid("open", state)
	}
	s.mirror.openQueued = true
	s.mu.Unlock()

	return s.enqueue(func() { s.open(ref) })
}

// Play starts playback of the opened reference, or resumes it when paused.
func (s *Session) Play() error {
	switch state := s.State(); state {
	case Pending:
		return nil
	case Open, Paused:
		return s.enqueue(s.play)
	default:
		return invalid("play", state)
	}
}

func (s *Session) Pause() error {
	return s.toggleIn("pause", Playing)
}

func (s *Session) Resume() error {
	return s.toggleIn("resume", Paused)
}

func (s *Session) TogglePause() error {
	return s.toggleIn("toggle pause", Playing, Paused)
}

func (s *Session) toggleIn(op string, allowed ...State) error {
	if state := s.State(); !state.in(allowed...) {
		return invalid(op, state)
	}

	return s.enqueue(func() {
		if s.state().in(allowed...) {
			s.togglePause()
		}
	})
}

// Seek moves the playback position.
func (s *Session) Seek(value float64, mode SeekMode) error {
	if state := s.State(); !state.in(Loading, Playing, Paused) {
		return invalid("seek", state)
	}

	return s.enqueue(func() { s.seek(value, mode) })
}

// Stop ends playback or discards an opened reference. EventQuit follows.
func (s *Session) Stop() error {
	if s.State() == NotRunning {
		return nil
	}
	return s.enqueue(s.stop)
}

// SetAudioDelay defers audio by seconds. It applies at once when playing and to later playbacks.
func (s *Session) SetAudioDelay(seconds float64) error {
	return s.enqueue(func() {
		s.delay = seconds
		if s.playing() {
			s.send(AudioDelayCommand{Seconds: seconds})
		}
	})
}

// SetFrameOutput chooses whether frames are drawn to the window and whether
// they are exported through EventFrameReady. Zero width and height keep the native size.
func (s *Session) SetFrameOutput(video, notify bool, width, height int) error {
	return s.enqueue(func() {
		s.output = FrameOutputCommand{Video: video, Notify: notify, Width: width, Height: height}
		if s.playing() {
			s.sendOutputMode()
		}
		if notify && s.frames != nil {
			s.startPolling()
		}
	})
}

// ReleaseFrame hands the frame of the last EventFrameReady back to the engine.
func (s *Session) ReleaseFrame() error {
	return s.enqueue(func() {
		if s.frames != nil {
			s.frames.Release()
		}
		s.frameDelivered = false
	})
}

// UpdateOverlay changes the on-screen display. An update carrying pixels is
// dropped while the engine still holds the previous canvas.
func (s *Session) UpdateOverlay(u OverlayUpdate) error {
	if state := s.State(); !state.in(Loading, Playing, Paused) {
		return invalid("update overlay", state)
	}
	if err := u.check(); err != nil {
		return err
	}

	return s.enqueue(func() { s.updateOverlay(u) })
}

// WindowChanged records the drawable for the next playback and tells a
// running engine about it. Engines that cannot follow a live change keep
// rendering with the window they were started with.
func (s *Session) WindowChanged(w Window) error {
	return s.enqueue(func() {
		s.window = mo.Some(w)
		if s.playing() && !s.send(WindowChangedCommand{Window: w}) {
			s.log.Debugf("window %s applies from the next playback", w)
		}
	})
}

// SetFilters replaces the extra video filters for the next playback.
func (s *Session) SetFilters(f Filters) error {
	return s.enqueue(func() {
		s.filters = f
	})
}

// Done is closed once the session goroutine has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops any engine and ends the session goroutine. No events are
// delivered afterwards. It blocks until cleanup is done, so it must not be
// called from a Handler.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	return nil
}

func (s *Session) enqueue(fn func()) error {
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}

	select {
	case s.requests <- fn:
		return nil
	case <-s.quit:
		return ErrClosed
	}
}

// mirror helpers

func (s *Session) state() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	old := s.mirror.state
	s.mirror.state = state
	s.mu.Unlock()

	if old != state {
		s.log.Debugf("%s -> %s", old, state)
	}
}

func (s *Session) setPosition(pos float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror.position = pos
}

func (s *Session) info() protocol.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.info
}

func (s *Session) setInfo(info protocol.StreamInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror.info = info
}

func (s *Session) setOverlayWritable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror.overlayWritable = ok
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	ev.State = s.mirror.state
	ev.Position = s.mirror.position
	s.mu.Unlock()

	s.log.Debugf("event %s", ev.Kind)
	if s.handler != nil {
		s.handler(ev)
	}
}
