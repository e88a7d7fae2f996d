// Package tui renders a running playback session and maps keys to session controls.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/player"
)

// Controller is the part of a session the view drives.
type Controller interface {
	State() player.State
	Play() error
	TogglePause() error
	Seek(value float64, mode player.SeekMode) error
	Stop() error
}

// Options configures the playback view.
type Options struct {
	Session Controller
	Events  Events
	Ref     mrl.Ref
	Engine  string
	// SeekStep is the relative seek in seconds. Larger jumps are six steps.
	SeekStep float64
	// Resume is where playback continues once started, if set.
	Resume float64
}

// Result is what the view knew when it quit.
type Result struct {
	Position float64
	Length   float64
	Ended    bool
	Err      error
}

// Run shows the view until the session quits or the user leaves.
func Run(options Options) (Result, error) {
	v := newBubble(options)

	model, err := tea.NewProgram(v, tea.WithAltScreen()).Run()
	if err != nil {
		return Result{}, err
	}

	b := model.(*bubble)
	return b.result(), nil
}

// Events carries session events into the view.
type Events chan player.Event

// NewEvents allocates an event channel with room for bursts of ticks.
func NewEvents() Events {
	return make(Events, 256)
}

// Handle is a player.Handler. Ticks are dropped while the view lags since the
// next one supersedes them. Other events wait a bounded time for the view.
func (e Events) Handle(ev player.Event) {
	if ev.Kind == player.EventTick || ev.Kind == player.EventFrameReady {
		select {
		case e <- ev:
		default:
		}
		return
	}

	select {
	case e <- ev:
	case <-time.After(handoff):
	}
}

const handoff = time.Second
