package player

import (
	"github.com/projector-cli/projector/engine"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/shm"
)

// EventKind names a session notification.
type EventKind int

const (
	EventOpen EventKind = iota
	EventStreamChanged
	EventStart
	EventPlay
	EventPause
	EventPauseToggle
	EventSeek
	EventTick
	EventEnd
	EventQuit
	EventCrashed
	EventError
	EventFrameReady
	EventOSDConfigure
)

var eventNames = map[EventKind]string{
	EventOpen:          "open",
	EventStreamChanged: "stream-changed",
	EventStart:         "start",
	EventPlay:          "play",
	EventPause:         "pause",
	EventPauseToggle:   "pause-toggle",
	EventSeek:          "seek",
	EventTick:          "tick",
	EventEnd:           "end",
	EventQuit:          "quit",
	EventCrashed:       "crashed",
	EventError:         "error",
	EventFrameReady:    "frame",
	EventOSDConfigure:  "osd-configure",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is delivered to the session handler on the session goroutine.
// Fields not relevant to Kind are zero.
type Event struct {
	Kind     EventKind
	State    State
	Position float64

	// EventOpen, EventStreamChanged
	Info protocol.StreamInfo

	// EventError
	Err error

	// EventCrashed
	Exit engine.ExitStatus

	// EventFrameReady. Pixels alias shared memory until ReleaseFrame.
	Frame shm.Frame

	// EventOSDConfigure
	Width, Height int
}

// Handler receives session events. It runs on the session goroutine and may
// call back into the session; such calls are queued behind the current event.
type Handler func(Event)
