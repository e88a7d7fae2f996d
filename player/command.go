package player

import (
	"github.com/projector-cli/projector/shm"
	"github.com/samber/mo"
)

// SeekMode says how a seek value is interpreted.
type SeekMode int

const (
	SeekRelative SeekMode = iota
	SeekAbsolute
	SeekPercentage
)

func (m SeekMode) String() string {
	switch m {
	case SeekAbsolute:
		return "absolute"
	case SeekPercentage:
		return "percentage"
	default:
		return "relative"
	}
}

// Command is an engine-neutral control message; engines turn it into their own syntax.
type Command interface {
	command()
}

type (
	TogglePauseCommand struct{}

	QuitCommand struct{}

	SeekCommand struct {
		Value float64
		Mode  SeekMode
	}

	// FrameOutputCommand selects whether frames go to the video window and
	// whether they are exported for polling. Zero Width and Height keep the native size.
	FrameOutputCommand struct {
		Video, Notify bool
		Width, Height int
	}

	OverlayCommand struct {
		Alpha   mo.Option[int]
		Visible mo.Option[bool]
		Rects   []shm.Rect
	}

	// AudioDelayCommand defers audio by Seconds; negative values advance it.
	AudioDelayCommand struct {
		Seconds float64
	}

	// WindowChangedCommand reports a new drawable or size to a running engine.
	WindowChangedCommand struct {
		Window Window
	}
)

func (TogglePauseCommand) command()   {}
func (QuitCommand) command()          {}
func (SeekCommand) command()          {}
func (FrameOutputCommand) command()   {}
func (OverlayCommand) command()       {}
func (AudioDelayCommand) command()    {}
func (WindowChangedCommand) command() {}
