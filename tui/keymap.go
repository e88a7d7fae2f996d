package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/projector-cli/projector/style"
)

// keymap lists the keys of the playback view.
type keymap struct {
	quit, forceQuit,
	playPause,
	forward, back,
	jumpForward, jumpBack,
	percent,
	showHelp key.Binding
}

func newKeymap() *keymap {
	return &keymap{
		quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "stop"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp(style.Fg(style.Peach)("space"), style.Fg(style.Peach)("play/pause")),
		),
		forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "forward"),
		),
		back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back"),
		),
		jumpForward: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "jump forward"),
		),
		jumpBack: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "jump back"),
		),
		percent: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "go to 0-90%"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.forward, k.back, k.quit, k.showHelp}
}

// FullHelp implements help.KeyMap.
func (k *keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.quit, k.forceQuit},
		{k.forward, k.back, k.jumpForward, k.jumpBack},
		{k.percent, k.showHelp},
	}
}
