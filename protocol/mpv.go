package protocol

import (
	"encoding/json"
	"strings"
)

// Properties the mpv dialect asks the engine to report. The order gives the observer ids.
var ObservedProperties = []string{"time-pos", "pause", "eof-reached", "duration", "video-params"}

// ipcMessage covers both events and command replies arriving on mpv's JSON-IPC socket.
type ipcMessage struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	Error     string          `json:"error"`
}

type videoParams struct {
	W      int     `json:"w"`
	H      int     `json:"h"`
	Aspect float64 `json:"aspect"`
}

// MPV returns the grammar for mpv: JSON-IPC messages plus the terminal
// identification lines printed through --term-playing-msg.
func MPV() Grammar {
	return Grammar{
		{Name: "ipc", Match: matchIPC},
		identifyRule(),
		{Name: "file-not-found", Match: func(line string) (Event, bool) {
			ok := strings.Contains(line, "No such file or directory") || strings.HasPrefix(line, "Cannot open file")
			return Event{Kind: FileNotFound}, ok
		}},
		prefix("fatal", "Fatal error", Fatal),
	}
}

func matchIPC(line string) (Event, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Event{}, false
	}

	var msg ipcMessage
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
		return Event{Kind: Diagnostic}, true
	}

	switch msg.Event {
	case "property-change":
		return propertyEvent(msg.Name, msg.Data), true
	case "playback-restart":
		return Event{Kind: Started}, true
	case "end-file":
		switch msg.Reason {
		case "eof":
			return Event{Kind: EndOfStream}, true
		case "error":
			if strings.Contains(msg.FileError, "no such file") || strings.Contains(msg.FileError, "loading failed") {
				return Event{Kind: FileNotFound}, true
			}
			return Event{Kind: Fatal}, true
		}
	}

	return Event{Kind: Diagnostic}, true
}

func propertyEvent(name string, data json.RawMessage) Event {
	if len(data) == 0 || string(data) == "null" {
		return Event{Kind: Diagnostic}
	}

	switch name {
	case "time-pos":
		var pos float64
		if json.Unmarshal(data, &pos) == nil && pos >= 0 {
			return Event{Kind: Tick, Position: pos}
		}
	case "pause":
		var paused bool
		if json.Unmarshal(data, &paused) == nil {
			if paused {
				return Event{Kind: Pause}
			}
			return Event{Kind: Resumed}
		}
	case "eof-reached":
		var eof bool
		if json.Unmarshal(data, &eof) == nil && eof {
			return Event{Kind: EndOfStream}
		}
	case "duration":
		var length float64
		if json.Unmarshal(data, &length) == nil {
			return Event{Kind: Info, Key: FieldLength, Value: length}
		}
	case "video-params":
		var p videoParams
		if json.Unmarshal(data, &p) == nil && p.W > 0 && p.H > 0 {
			aspect := p.Aspect
			if aspect <= 0 {
				aspect = float64(p.W) / float64(p.H)
			}
			return Event{Kind: Geometry, Width: p.W, Height: p.H, Aspect: aspect}
		}
	}

	return Event{Kind: Diagnostic}
}
