package tui

import (
	"errors"
	"fmt"
	"strconv"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/util"
)

func (b *bubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if cmd := b.notifier.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		cmds = append(cmds, cmd)
	case eventsClosedMsg:
		return b, tea.Quit
	case player.Event:
		cmd, done := b.onEvent(msg)
		if done {
			return b, tea.Quit
		}
		cmds = append(cmds, cmd, b.waitForEvent())
	case tea.KeyMsg:
		cmd, done := b.onKey(msg)
		if done {
			return b, tea.Quit
		}
		cmds = append(cmds, cmd)
	}

	return b, tea.Batch(cmds...)
}

// onEvent applies a session event. done is set once the view should close.
func (b *bubble) onEvent(ev player.Event) (cmd tea.Cmd, done bool) {
	b.playerState = ev.State

	switch ev.Kind {
	case player.EventOpen:
		b.info = ev.Info
		if err := b.session.Play(); err != nil {
			return b.raise(err), false
		}
	case player.EventStreamChanged:
		b.info = ev.Info
	case player.EventStart:
		b.state = playingState
		b.position = ev.Position
		if b.resume > 0 && !b.resumed {
			b.resumed = true
			if err := b.session.Seek(b.resume, player.SeekAbsolute); err == nil {
				return notify("resumed at " + util.FormatSeconds(b.resume)), false
			}
		}
	case player.EventTick, player.EventSeek, player.EventPlay, player.EventPause:
		b.position = ev.Position
	case player.EventEnd:
		b.ended = true
		b.state = endedState
	case player.EventError:
		if b.state == loadingState {
			b.state = errorState
		}
		return b.raise(ev.Err), false
	case player.EventCrashed:
		b.state = errorState
		b.lastError = fmt.Errorf("engine crashed: %s", ev.Exit)
	case player.EventQuit:
		if b.state == errorState && !b.stopping {
			// keep the error on screen until the user leaves
			return nil, false
		}
		return nil, true
	}

	return nil, false
}

func (b *bubble) raise(err error) tea.Cmd {
	b.lastError = err
	return notify(err.Error())
}

// onKey maps a key press to a session control. done is set once the view should close.
func (b *bubble) onKey(msg tea.KeyMsg) (cmd tea.Cmd, done bool) {
	switch {
	case bubblesKey.Matches(msg, b.keymap.forceQuit):
		_ = b.session.Stop()
		return nil, true
	case bubblesKey.Matches(msg, b.keymap.quit):
		if b.state == errorState || b.session.State() == player.NotRunning {
			return nil, true
		}
		b.stopping = true
		return b.control(b.session.Stop()), false
	case bubblesKey.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case bubblesKey.Matches(msg, b.keymap.playPause):
		return b.control(b.session.TogglePause()), false
	case bubblesKey.Matches(msg, b.keymap.forward):
		return b.control(b.session.Seek(b.seekStep, player.SeekRelative)), false
	case bubblesKey.Matches(msg, b.keymap.back):
		return b.control(b.session.Seek(-b.seekStep, player.SeekRelative)), false
	case bubblesKey.Matches(msg, b.keymap.jumpForward):
		return b.control(b.session.Seek(b.seekStep*6, player.SeekRelative)), false
	case bubblesKey.Matches(msg, b.keymap.jumpBack):
		return b.control(b.session.Seek(-b.seekStep*6, player.SeekRelative)), false
	case bubblesKey.Matches(msg, b.keymap.percent):
		n, err := strconv.Atoi(msg.String())
		if err != nil {
			return nil, false
		}
		return b.control(b.session.Seek(float64(n*10), player.SeekPercentage)), false
	}

	return nil, false
}

// control reports a refused control without failing the view.
func (b *bubble) control(err error) tea.Cmd {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, player.ErrInvalidState):
		return notify(fmt.Sprintf("not now (%s)", b.session.State()))
	default:
		return b.raise(err)
	}
}
