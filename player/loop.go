package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/shm"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// run is the session goroutine.
func (s *Session) run() {
	defer close(s.done)
	defer s.shutdown()

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}

		select {
		case <-s.quit:
			return
		case fn := <-s.requests:
			fn()
		case res, ok := <-s.capResult:
			s.capResult = nil
			if ok {
				s.onCapabilities(res)
			}
		case line, ok := <-s.lines:
			if !ok {
				s.lines = nil
				continue
			}
			s.onLine(line)
		case status, ok := <-s.exited:
			s.exited = nil
			if ok {
				s.onExit(status)
			}
		case <-tick:
			s.poll()
		}
	}
}

func (s *Session) open(ref mrl.Ref) {
	s.mu.Lock()
	s.mirror.openQueued = false
	if s.mirror.state != NotRunning {
		s.mu.Unlock()
		return
	}
	s.mirror.state = Opening
	s.mirror.ref = ref
	s.mirror.position = 0
	s.mirror.info = protocol.StreamInfo{}
	s.mu.Unlock()

	s.log.Infof("opening %s", ref)
	if err := s.start(s.engine.Identify(ref), true); err != nil {
		s.setState(NotRunning)
		s.emit(Event{Kind: EventError, Err: err})
	}
}

func (s *Session) play() {
	switch s.state() {
	case Paused:
		s.togglePause()
		return
	case Open:
	default:
		return
	}

	if s.engine.NeedsCapabilities() && s.capInfo.IsAbsent() {
		s.pendingPlay = true
		s.setState(Pending)
		return
	}

	s.startPlayback()
}

func (s *Session) onCapabilities(res capability.Result) {
	info := res.Info
	if res.Err != nil {
		s.log.Warnf("capabilities unavailable: %v", res.Err)
		info = capability.NewInfo()
	}
	s.capInfo = mo.Some(info)

	if s.pendingPlay && s.state() == Pending {
		s.pendingPlay = false
		s.startPlayback()
	}
}

func (s *Session) startPlayback() {
	s.mu.Lock()
	ref := s.mirror.ref
	s.mu.Unlock()

	inv, err := s.engine.Playback(PlayRequest{
		Ref:        ref,
		Binary:     s.binary,
		Info:       s.capInfo.OrElse(capability.NewInfo()),
		Stream:     s.info(),
		Window:     s.window,
		Audio:      s.audio,
		Filters:    s.filters,
		InstanceID: s.instanceID,
		FrameKey:   s.frameKey,
		OverlayKey: s.osdKey,
	})
	if err == nil {
		err = s.start(inv, false)
	}

	if err != nil {
		s.setState(Open)
		s.emit(Event{Kind: EventError, Err: err})
		return
	}

	s.setPosition(0)
	s.setState(Loading)
}

// start spawns one engine run and makes it the current process.
func (s *Session) start(inv Invocation, probing bool) error {
	opts := append([]engine.Option{engine.WithStopTimeout(s.stopTimeout)}, inv.Options...)

	proc, err := s.spawner(s.ctx, s.binary, inv.Args, opts...)
	if err != nil {
		s.removeFiles(inv.Cleanup)
		return fmt.Errorf("spawn %s: %w", s.engine.ID(), err)
	}

	s.proc = proc
	s.lines = proc.Lines()
	s.exited = proc.Exited()
	s.cleanup = inv.Cleanup
	s.probing = probing
	s.stopping = false
	s.mediaError = false
	s.absorbTick = false
	s.outputSent = false
	return nil
}

func (s *Session) stop() {
	switch s.state() {
	case Open, Pending:
		s.pendingPlay = false
		s.setState(NotRunning)
		s.emit(Event{Kind: EventQuit})
	case Opening, Loading, Playing, Paused:
		if s.proc == nil {
			s.setState(NotRunning)
			s.emit(Event{Kind: EventQuit})
			return
		}
		s.stopping = true
		s.setState(Shutdown)
		s.proc.RequestStop()
	}
}

func (s *Session) onExit(status engine.ExitStatus) {
	probe, stopping, mediaError := s.probing, s.stopping, s.mediaError
	s.release()

	switch {
	case stopping:
		s.setState(NotRunning)
		s.emit(Event{Kind: EventQuit})
	case probe && mediaError:
		s.setState(NotRunning)
	case probe:
		s.setState(Open)
		info := s.info()
		s.emit(Event{Kind: EventOpen, Info: info})
		s.emit(Event{Kind: EventStreamChanged, Info: info})
	case status.Clean() || mediaError:
		s.setState(NotRunning)
		s.emit(Event{Kind: EventQuit})
	default:
		s.log.Warnf("engine crashed: %s", status)
		s.setState(NotRunning)
		s.emit(Event{Kind: EventCrashed, Exit: status})
	}
}

func (s *Session) onLine(line engine.Line) {
	ev := s.grammar.Classify(line.Text)

	switch ev.Kind {
	case protocol.Diagnostic:
		s.log.Tracef("%s", line.Text)
	case protocol.Info:
		s.updateInfo(s.info().With(ev.Key, ev.Value))
	case protocol.Aspect:
		s.updateInfo(s.info().With(protocol.FieldAspect, ev.Aspect))
	case protocol.Geometry:
		info := s.info().With(protocol.FieldWidth, ev.Width).With(protocol.FieldHeight, ev.Height)
		if info.Float(protocol.FieldAspect) <= 0 {
			info = info.With(protocol.FieldAspect, ev.Aspect)
		}
		s.updateInfo(info)
	case protocol.Tick:
		s.onTick(ev.Position)
	case protocol.Pause:
		if s.state() == Playing {
			s.setState(Paused)
			s.emit(Event{Kind: EventPause})
		}
	case protocol.Resumed:
		if s.state() == Paused {
			s.absorbTick = false
			s.setState(Playing)
			s.emit(Event{Kind: EventPlay})
		}
	case protocol.Started:
		if s.state() == Loading {
			s.startPlaying()
		}
	case protocol.EndOfStream:
		if s.state().in(Playing, Paused) {
			s.emit(Event{Kind: EventEnd})
		}
	case protocol.FileNotFound:
		s.mediaError = true
		s.emit(Event{Kind: EventError, Err: fmt.Errorf("%w: %s", ErrMediaNotFound, s.Ref())})
	case protocol.Fatal:
		s.log.Errorf("%s", line.Text)
		s.emit(Event{Kind: EventError, Err: fmt.Errorf("%w: %s", ErrEngineFatal, line.Text)})
	case protocol.OverlayReady:
		s.attachOverlay(ev.Width, ev.Height)
	case protocol.FrameBufferReady:
		s.attachFrames()
	case protocol.InputConfigRead:
		if lo.Contains(s.cleanup, ev.Path) {
			s.removeFiles([]string{ev.Path})
			s.cleanup = lo.Without(s.cleanup, ev.Path)
		}
	}
}

// updateInfo replaces the stream info. Changes seen while identifying are
// reported together by EventOpen.
func (s *Session) updateInfo(info protocol.StreamInfo) {
	s.setInfo(info)
	if !s.probing {
		s.emit(Event{Kind: EventStreamChanged, Info: info})
	}
}

func (s *Session) onTick(pos float64) {
	s.mu.Lock()
	prev := s.mirror.position
	s.mirror.position = pos
	s.mu.Unlock()

	switch s.state() {
	case Loading:
		s.startPlaying()
		return
	case Paused:
		if s.absorbTick {
			s.absorbTick = false
			s.emit(Event{Kind: EventSeek})
			return
		}
		if pos <= prev {
			return
		}
		s.setState(Playing)
		s.emit(Event{Kind: EventPlay})
	case Playing:
	default:
		return
	}

	if delta := pos - prev; delta < 0 || delta > 1 {
		s.emit(Event{Kind: EventSeek})
		return
	}
	s.emit(Event{Kind: EventTick})
}

// startPlaying is the first sign of life of a playback run.
func (s *Session) startPlaying() {
	s.setState(Playing)

	if !s.outputSent && s.sendOutputMode() {
		s.emit(Event{Kind: EventStreamChanged, Info: s.info()})
	}
	if s.delay != 0 {
		s.send(AudioDelayCommand{Seconds: s.delay})
	}

	s.emit(Event{Kind: EventStart})
}

func (s *Session) togglePause() {
	if s.send(TogglePauseCommand{}) {
		s.emit(Event{Kind: EventPauseToggle})
	}
}

func (s *Session) seek(value float64, mode SeekMode) {
	state := s.state()
	if !state.in(Loading, Playing, Paused) {
		return
	}

	if s.send(SeekCommand{Value: value, Mode: mode}) && state == Paused {
		s.absorbTick = true
	}
}

func (s *Session) playing() bool {
	return s.proc != nil && !s.probing && s.state().in(Loading, Playing, Paused)
}

// send formats cmd for the engine and writes it. Commands the engine has no
// equivalent for are skipped.
func (s *Session) send(cmd Command) bool {
	if s.proc == nil {
		return false
	}

	text, err := s.engine.Format(cmd)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			s.log.Warnf("format %T: %v", cmd, err)
		}
		return false
	}

	return s.proc.WriteCommand(text)
}

func (s *Session) sendOutputMode() bool {
	if !s.send(s.output) {
		return false
	}
	s.outputSent = true
	return true
}

func (s *Session) attachFrames() {
	if s.frames == nil {
		s.frames = shm.NewChannel(s.provider, s.frameKey, shm.YV12)
	}

	if err := s.frames.Attach(); err != nil {
		s.log.Warnf("frame buffer: %v", err)
		return
	}

	s.frameDelivered = false
	s.sendOutputMode()
	if s.output.Notify {
		s.startPolling()
	}
}

func (s *Session) attachOverlay(width, height int) {
	if s.overlay == nil {
		s.overlay = shm.NewChannel(s.provider, s.osdKey, shm.BGR32)
	}

	if err := s.overlay.Attach(); err != nil {
		s.log.Warnf("overlay: %v", err)
		return
	}

	s.setOverlayWritable(s.overlay.Writable())
	s.startPolling()
	s.emit(Event{Kind: EventOSDConfigure, Width: width, Height: height})
}

func (s *Session) updateOverlay(u OverlayUpdate) {
	if !s.playing() || s.overlay == nil || !s.overlay.Attached() {
		s.log.Debugf("no overlay, update dropped")
		return
	}

	if u.Pixels != nil {
		if !s.overlay.Publish(u.frame()) {
			s.log.Debugf("overlay busy, update dropped")
			s.setOverlayWritable(false)
			return
		}
	}

	s.send(OverlayCommand{Alpha: u.Alpha, Visible: u.Visible, Rects: u.Rects})
	s.setOverlayWritable(s.overlay.Writable())
}

func (s *Session) startPolling() {
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.pollInterval)
	}
}

func (s *Session) stopPolling() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) poll() {
	framesLive := s.frames != nil && s.frames.Attached()
	overlayLive := s.overlay != nil && s.overlay.Attached()

	if framesLive && s.output.Notify && !s.frameDelivered {
		if frame, ok := s.frames.Poll(); ok {
			s.frameDelivered = true
			s.emit(Event{Kind: EventFrameReady, Frame: frame})
		}
	}

	if overlayLive {
		s.setOverlayWritable(s.overlay.Writable())
	} else {
		s.setOverlayWritable(false)
	}

	if !framesLive && !overlayLive {
		s.stopPolling()
	}
}

// release forgets the current process and everything tied to its run.
func (s *Session) release() {
	s.stopPolling()

	if s.frames != nil {
		s.frames.Detach()
	}
	if s.overlay != nil {
		s.overlay.Detach()
	}
	s.setOverlayWritable(false)

	s.removeFiles(s.cleanup)
	s.cleanup = nil

	s.proc, s.lines, s.exited = nil, nil, nil
	s.probing, s.stopping = false, false
	s.frameDelivered, s.outputSent, s.absorbTick = false, false, false
}

func (s *Session) removeFiles(paths []string) {
	for _, path := range paths {
		if err := filesystem.API().Remove(path); err != nil {
			s.log.Debugf("cleanup %s: %v", path, err)
		}
	}
}

// shutdown runs when the session goroutine ends.
func (s *Session) shutdown() {
	if s.proc != nil {
		s.proc.RequestStop()
		s.await(s.stopTimeout + time.Second)
	}

	s.cancel()
	s.release()
}

// await drains output until the current process exits or the timeout passes.
func (s *Session) await(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for s.lines != nil || s.exited != nil {
		select {
		case _, ok := <-s.lines:
			if !ok {
				s.lines = nil
			}
		case <-s.exited:
			s.exited = nil
		case <-timer.C:
			s.log.Warnf("engine did not exit on close")
			return
		}
	}
}
