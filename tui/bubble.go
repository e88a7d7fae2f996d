package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/style"
)

const defaultSeekStep = 10

// bubble is the playback view.
type bubble struct {
	state  state
	keymap *keymap

	session  Controller
	events   Events
	ref      mrl.Ref
	engine   string
	seekStep float64
	resume   float64
	resumed  bool

	// components
	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  notifier

	playerState player.State
	position    float64
	info        protocol.StreamInfo
	ended       bool
	stopping    bool
	lastError   error

	width, height int
}

func newBubble(options Options) *bubble {
	step := options.SeekStep
	if step <= 0 {
		step = defaultSeekStep
	}

	spinnerC := spinner.New()
	spinnerC.Spinner = spinner.Dot
	spinnerC.Style = style.New().Foreground(style.AccentColor)

	progressC := progress.New(
		progress.WithGradient(string(style.Mauve), string(style.Peach)),
		progress.WithoutPercentage(),
	)

	return &bubble{
		state:     loadingState,
		keymap:    newKeymap(),
		session:   options.Session,
		events:    options.Events,
		ref:       options.Ref,
		engine:    options.Engine,
		seekStep:  step,
		resume:    options.Resume,
		spinnerC:  spinnerC,
		progressC: progressC,
		helpC:     help.New(),
	}
}

func (b *bubble) length() float64 {
	return b.info.Float(protocol.FieldLength)
}

func (b *bubble) result() Result {
	return Result{
		Position: b.position,
		Length:   b.length(),
		Ended:    b.ended,
		Err:      b.lastError,
	}
}

func (b *bubble) resize(width, height int) {
	b.width, b.height = width, height
	b.helpC.Width = width
	b.progressC.Width = max(width-paddingX*2, 10)
}
