// Package player runs a playback session on top of an external engine.
//
// A Session owns one goroutine. Every state change, every engine line and
// every event handler call happens there, so handlers observe a consistent
// state. Public methods validate against a snapshot, queue the request and
// return at once; their effects arrive as events.
package player

import (
	"context"
	"fmt"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/protocol"
	"github.com/samber/mo"
)

// Engine adapts one engine binary to the session.
type Engine interface {
	ID() string
	// Binary is the configured path or the name to look up in PATH.
	Binary() string
	Grammar() protocol.Grammar
	// NeedsCapabilities reports whether Playback needs the probed capability info.
	NeedsCapabilities() bool
	// Capabilities probes the binary at path. It may be slow.
	Capabilities(ctx context.Context, path string) (capability.Info, error)
	// Describe derives the registry descriptor from probed capabilities.
	Describe(info capability.Info) backend.Descriptor
	// Identify returns the invocation of the metadata pass run by Open.
	Identify(ref mrl.Ref) Invocation
	Playback(req PlayRequest) (Invocation, error)
	// Format renders cmd in the engine's control syntax.
	Format(cmd Command) (string, error)
}

// Invocation is one engine run.
type Invocation struct {
	Args    []string
	Options []engine.Option
	// Cleanup lists temporary files removed when the run ends.
	Cleanup []string
}

// Window is the drawable the engine renders into.
// Width and Height are its size in pixels, zero when unknown. Aspect is the
// shape of the screen it covers, derived from the size when unset.
type Window struct {
	ID      uint64
	Display string

	Width, Height int
	Aspect        Ratio
}

// Ratio is an integer aspect ratio such as 16:9.
type Ratio struct {
	Num, Den int
}

func (r Ratio) valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Sized reports whether the window size is known.
func (w Window) Sized() bool {
	return w.Width > 0 && w.Height > 0
}

// DisplayAspect returns Aspect, or the reduced window size when Aspect is unset.
func (w Window) DisplayAspect() (Ratio, bool) {
	if w.Aspect.valid() {
		return w.Aspect, true
	}
	if !w.Sized() {
		return Ratio{}, false
	}
	d := gcd(w.Width, w.Height)
	return Ratio{Num: w.Width / d, Den: w.Height / d}, true
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (w Window) String() string {
	return fmt.Sprintf("0x%x@%s", w.ID, w.Display)
}

// AudioDevices are the output device names used per channel layout.
type AudioDevices struct {
	Mono, Stereo, Surround40, Surround51, Passthrough string
}

// Audio configures the engine's audio output.
type Audio struct {
	Driver      string
	Channels    int
	Passthrough bool
	Devices     AudioDevices
}

// Filters are extra video filters around the ones the session adds itself.
type Filters struct {
	Pre, Add []string
}

// PlayRequest is everything an engine needs to build a playback invocation.
type PlayRequest struct {
	Ref     mrl.Ref
	Binary  string
	Info    capability.Info
	Stream  protocol.StreamInfo
	Window  mo.Option[Window]
	Audio   Audio
	Filters Filters
	// InstanceID names per-session resources such as sockets and shared memory keys.
	InstanceID string
	FrameKey   int
	OverlayKey int
}
