// Package protocol classifies engine output lines into typed events.
//
// A Grammar is an ordered table of rules evaluated top to bottom; the first
// rule that claims a line decides its event. Classification is pure and
// never fails: anything unrecognized becomes a Diagnostic event.
package protocol

// Kind enumerates the line classes an engine can emit.
type Kind int

const (
	Diagnostic Kind = iota
	Tick
	Info
	Aspect
	Pause
	Resumed
	Started
	Geometry
	EndOfStream
	FileNotFound
	Fatal
	OverlayReady
	FrameBufferReady
	InputConfigRead
)

var kindNames = map[Kind]string{
	Diagnostic:       "diagnostic",
	Tick:             "tick",
	Info:             "info",
	Aspect:           "aspect",
	Pause:            "pause",
	Resumed:          "resumed",
	Started:          "started",
	Geometry:         "geometry",
	EndOfStream:      "end-of-stream",
	FileNotFound:     "file-not-found",
	Fatal:            "fatal",
	OverlayReady:     "overlay-ready",
	FrameBufferReady: "framebuffer-ready",
	InputConfigRead:  "input-config-read",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is the result of classifying one line. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	Line string

	// Tick
	Position float64

	// Info
	Key   string
	Value any

	// Geometry, OverlayReady; Aspect also for Aspect
	Width, Height int
	Aspect        float64

	// InputConfigRead
	Path string
}
