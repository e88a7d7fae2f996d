package player

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/shm"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
)

// Audio codecs that are passed through to the receiver untouched.
var passthroughCodecs = []string{"a52", "hwac3", "ffdts", "hwdts"}

// mplayer numbers its seek types in this order.
var mplayerSeekTypes = map[SeekMode]int{
	SeekRelative:   0,
	SeekPercentage: 1,
	SeekAbsolute:   2,
}

// MPlayer drives mplayer in slave mode over stdin.
type MPlayer struct {
	binary string
	// keyDir holds the generated key binding files. Empty means where.Temp().
	keyDir string
}

// NewMPlayer returns the mplayer engine. An empty binary means "mplayer" from PATH.
func NewMPlayer(binary string) *MPlayer {
	if binary == "" {
		binary = constant.MPlayer
	}
	return &MPlayer{binary: binary}
}

func (m *MPlayer) ID() string                { return constant.MPlayer }
func (m *MPlayer) Binary() string            { return m.binary }
func (m *MPlayer) Grammar() protocol.Grammar { return protocol.MPlayer() }
func (m *MPlayer) NeedsCapabilities() bool   { return true }

// Capabilities reads the filter and driver tables and the key list of the binary at path.
func (m *MPlayer) Capabilities(ctx context.Context, path string) (capability.Info, error) {
	scanner := protocol.NewInfoScanner(protocol.MPlayerDialect())

	lines, status, err := engine.Run(ctx, path, strings.Fields(constant.MPlayerHelpArgs)...)
	if err != nil {
		return capability.Info{}, err
	}
	for _, line := range lines {
		scanner.Scan(line)
	}

	keys, _, err := engine.Run(ctx, path, strings.Fields(constant.MPlayerKeylistArgs)...)
	if err != nil {
		return capability.Info{}, err
	}
	for _, line := range keys {
		scanner.ScanKey(line)
	}

	info := scanner.Info()
	if info.Empty() {
		return info, fmt.Errorf("no capabilities reported (%s)", status)
	}
	return info, nil
}

// Describe turns probed capabilities into a backend descriptor.
func (m *MPlayer) Describe(info capability.Info) backend.Descriptor {
	caps := backend.Capabilities()
	if info.HasVideoFilter("overlay") {
		caps[backend.CapOSD] = struct{}{}
	}
	if info.HasVideoFilter("outbuf") {
		caps[backend.CapCanvas] = struct{}{}
	}
	if info.HasVideoFilter("yadif") || info.HasVideoFilter("pp") {
		caps[backend.CapDeinterlace] = struct{}{}
	}

	return backend.Descriptor{
		Capabilities: caps,
		Schemes:      []string{mrl.File, mrl.DVD, mrl.VCD, mrl.HTTP, mrl.HTTPS, "rtsp", "mms", "ftp", "tv", "dvb"},
		Extensions:   []string{"avi", "mpg", "mpeg", "wmv", "vob", "rm", "asf"},
	}
}

func (m *MPlayer) Identify(ref mrl.Ref) Invocation {
	args := strings.Fields(constant.MPlayerIdentifyArgs)
	args = append(args, discArgs(ref)...)
	return Invocation{Args: append(args, ref.Target())}
}

func (m *MPlayer) Playback(req PlayRequest) (Invocation, error) {
	args := strings.Fields(constant.MPlayerSlaveArgs)

	filters := append([]string(nil), req.Filters.Pre...)
	if req.Info.HasVideoFilter("outbuf") {
		filters = append(filters, fmt.Sprintf("outbuf=%d:yv12", req.FrameKey))
	}
	if w, ok := req.Window.Get(); ok && w.Sized() {
		// letterbox to the screen shape, then scale to the window
		aspect, _ := w.DisplayAspect()
		filters = append(filters,
			fmt.Sprintf("expand=:::::%d/%d", aspect.Num, aspect.Den),
			fmt.Sprintf("dsize=%d/%d", w.Width, w.Height))
	}
	filters = append(filters, req.Filters.Add...)
	if req.Info.HasVideoFilter("overlay") {
		filters = append(filters, fmt.Sprintf("overlay=%d", req.OverlayKey))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	if w, ok := req.Window.Get(); ok {
		args = append(args, "-wid", fmt.Sprintf("0x%x", w.ID))
		if w.Display != "" {
			args = append(args, "-display", w.Display)
		}
	} else {
		// no window, no video out
		args = append(args, "-vo", "null")
	}

	args = append(args, mplayerAudioArgs(req.Audio, req.Stream)...)

	keyfile, err := m.writeKeyFile(req.Info.Keylist)
	if err != nil {
		return Invocation{}, err
	}
	args = append(args, "-input", "conf="+keyfile)

	args = append(args, discArgs(req.Ref)...)
	args = append(args, req.Ref.Target())

	return Invocation{Args: args, Cleanup: []string{keyfile}}, nil
}

// writeKeyFile binds every printable key to a command that does not exist,
// so key presses in the video window are ignored by the engine. mplayer
// announces when it has read the file, at which point it is deleted.
func (m *MPlayer) writeKeyFile(keylist []string) (string, error) {
	var b strings.Builder
	for c := '!'; c <= '~'; c++ {
		fmt.Fprintf(&b, "%c noop\n", c)
	}
	for _, key := range keylist {
		fmt.Fprintf(&b, "%s noop\n", key)
	}

	dir := m.keyDir
	if dir == "" {
		dir = where.Temp()
	}

	path, err := filesystem.WriteTemp(dir, "keys-*.conf", []byte(b.String()))
	if err != nil {
		return "", fmt.Errorf("key bindings: %w", err)
	}
	return path, nil
}

func (m *MPlayer) Format(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case TogglePauseCommand:
		return "pause", nil
	case QuitCommand:
		return engine.DefaultStopCommand, nil
	case SeekCommand:
		return fmt.Sprintf("seek %f %d", c.Value, mplayerSeekTypes[c.Mode]), nil
	case FrameOutputCommand:
		mode := outbufMode(c.Video, c.Notify)
		if c.Width > 0 && c.Height > 0 {
			return fmt.Sprintf("outbuf %d %d %d", mode, c.Width, c.Height), nil
		}
		return fmt.Sprintf("outbuf %d", mode), nil
	case OverlayCommand:
		return shm.UpdateCommand(c.Alpha, c.Visible, c.Rects), nil
	case AudioDelayCommand:
		return fmt.Sprintf("audio_delay %f 1", -c.Seconds), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupported, cmd)
	}
}

// outbufMode packs the two output switches the way the outbuf filter expects.
func outbufMode(video, notify bool) int {
	mode := 0
	if video {
		mode |= 1
	}
	if notify {
		mode |= 2
	}
	return mode
}

func mplayerAudioArgs(a Audio, stream protocol.StreamInfo) []string {
	var args []string
	if a.Passthrough {
		args = append(args, "-ac", "hwac3,hwdts,")
	} else {
		args = append(args, "-channels", strconv.Itoa(a.Channels))
	}

	if a.Driver == "" {
		return args
	}

	driver := a.Driver
	if driver == "alsa" {
		driver += ":noblock"
		if device := alsaDevice(a.Devices, stream); device != "" {
			driver += ":device=" + strings.ReplaceAll(device, ":", "=")
		}
	}

	return append(args, "-ao", driver)
}

// alsaDevice picks the output device by the stream's audio layout.
// Streams of unknown layout get the four channel device.
func alsaDevice(d AudioDevices, stream protocol.StreamInfo) string {
	if lo.Contains(passthroughCodecs, stream.String(protocol.FieldAudioCodec)) {
		return d.Passthrough
	}

	switch n := stream.Int(protocol.FieldChannels); {
	case n == 1:
		return d.Mono
	case n <= 4:
		return d.Surround40
	case n <= 6:
		return d.Surround51
	default:
		return d.Stereo
	}
}

func discArgs(ref mrl.Ref) []string {
	if dev, ok := ref.Device().Get(); ok && ref.Scheme() == mrl.DVD {
		return []string{"-dvd-device", dev}
	}
	return nil
}
