package player

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/version"
	"github.com/projector-cli/projector/where"
)

// --input-ipc-server replaced --input-unix-socket in this release.
const mpvIPCServerSince = "0.7.0"

// mpvIdentify makes mpv print the identification lines mplayer prints with -identify.
var mpvIdentify = []string{
	"ID_FILENAME=${filename}",
	"ID_LENGTH=${=duration}",
	"ID_VIDEO_FORMAT=${video-format}",
	"ID_VIDEO_WIDTH=${=width}",
	"ID_VIDEO_HEIGHT=${=height}",
	"ID_VIDEO_FPS=${=container-fps}",
	"ID_VIDEO_ASPECT=${=video-params/aspect}",
	"ID_AUDIO_CODEC=${audio-codec-name}",
	"ID_AUDIO_NCH=${=audio-params/channel-count}",
}

var mpvSeekModes = map[SeekMode]string{
	SeekRelative:   "relative",
	SeekAbsolute:   "absolute",
	SeekPercentage: "absolute-percent",
}

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command []interface{} `json:"command"`
}

// MPV drives mpv over its JSON-IPC socket.
type MPV struct {
	binary string
	// socketDir holds the IPC sockets. Empty means where.Temp().
	socketDir string
}

// NewMPV returns the mpv engine. An empty binary means "mpv" from PATH.
func NewMPV(binary string) *MPV {
	if binary == "" {
		binary = constant.MPV
	}
	return &MPV{binary: binary}
}

func (m *MPV) ID() string                { return constant.MPV }
func (m *MPV) Binary() string            { return m.binary }
func (m *MPV) Grammar() protocol.Grammar { return protocol.MPV() }

// NeedsCapabilities is true because the IPC flag depends on the version.
func (m *MPV) NeedsCapabilities() bool { return true }

func (m *MPV) Capabilities(ctx context.Context, path string) (capability.Info, error) {
	scanner := protocol.NewInfoScanner(protocol.MPVDialect())

	for _, args := range [][]string{{"--version"}, {"--vo=help"}, {"--ao=help"}, {"--vf=help"}} {
		lines, _, err := engine.Run(ctx, path, args...)
		if err != nil {
			return capability.Info{}, err
		}
		for _, line := range lines {
			scanner.Scan(line)
		}
	}

	info := scanner.Info()
	if info.Version == "" {
		return info, fmt.Errorf("%s did not report a version", path)
	}
	return info, nil
}

func (m *MPV) Describe(capability.Info) backend.Descriptor {
	return backend.Descriptor{
		Capabilities: backend.Capabilities(backend.CapDeinterlace, backend.CapDynamicFilters),
		Schemes:      []string{mrl.File, mrl.DVD, "bd", mrl.HTTP, mrl.HTTPS, "rtsp", "rtmp"},
		Extensions:   []string{"mkv", "webm", "mp4", "mov", "m4v"},
	}
}

func (m *MPV) Identify(ref mrl.Ref) Invocation {
	args := []string{
		"--no-config",
		"--vo=null",
		"--ao=null",
		"--frames=1",
		"--term-playing-msg=" + strings.Join(mpvIdentify, "\n"),
	}
	args = append(args, mpvDiscArgs(ref)...)
	return Invocation{Args: append(args, ref.Target())}
}

func (m *MPV) Playback(req PlayRequest) (Invocation, error) {
	dir := m.socketDir
	if dir == "" {
		dir = where.Temp()
	}
	socket := filepath.Join(dir, fmt.Sprintf("mpv-%s.sock", req.InstanceID))

	flag := "--input-ipc-server"
	if req.Info.Version != "" && !version.AtLeast(req.Info.Version, mpvIPCServerSince) {
		flag = "--input-unix-socket"
	}

	args := []string{
		"--no-terminal",
		"--no-input-default-bindings",
		flag + "=" + socket,
	}

	if w, ok := req.Window.Get(); ok {
		args = append(args, fmt.Sprintf("--wid=%d", w.ID))
	} else {
		args = append(args, "--force-window=yes")
	}

	if filters := append(append([]string(nil), req.Filters.Pre...), req.Filters.Add...); len(filters) > 0 {
		args = append(args, "--vf="+strings.Join(filters, ","))
	}

	args = append(args, mpvAudioArgs(req.Audio)...)
	args = append(args, mpvDiscArgs(req.Ref)...)
	args = append(args, req.Ref.Target())

	hello := make([]string, 0, len(protocol.ObservedProperties))
	for i, name := range protocol.ObservedProperties {
		line, err := encodeIPC("observe_property", i+1, name)
		if err != nil {
			return Invocation{}, err
		}
		hello = append(hello, line)
	}

	quit, err := encodeIPC("quit")
	if err != nil {
		return Invocation{}, err
	}

	return Invocation{
		Args: args,
		Options: []engine.Option{
			engine.WithIPC(socket, hello...),
			engine.WithStopCommand(quit),
		},
		Cleanup: []string{socket},
	}, nil
}

func (m *MPV) Format(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case TogglePauseCommand:
		return encodeIPC("cycle", "pause")
	case QuitCommand:
		return encodeIPC("quit")
	case SeekCommand:
		return encodeIPC("seek", c.Value, mpvSeekModes[c.Mode])
	case AudioDelayCommand:
		return encodeIPC("set_property", "audio-delay", c.Seconds)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupported, cmd)
	}
}

func encodeIPC(command ...interface{}) (string, error) {
	payload, err := json.Marshal(ipcCommand{Command: command})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(payload), nil
}

func mpvAudioArgs(a Audio) []string {
	var args []string
	if a.Passthrough {
		args = append(args, "--audio-spdif=ac3,dts")
	} else if a.Channels > 0 {
		args = append(args, fmt.Sprintf("--audio-channels=%d", a.Channels))
	}

	if a.Driver != "" {
		args = append(args, "--ao="+a.Driver)
	}
	return args
}

func mpvDiscArgs(ref mrl.Ref) []string {
	if dev, ok := ref.Device().Get(); ok && ref.Scheme() == mrl.DVD {
		return []string{"--dvd-device=" + dev}
	}
	return nil
}
