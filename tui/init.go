package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type eventsClosedMsg struct{}

// Init starts listening for session events. The session is opened by the caller.
func (b *bubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.waitForEvent())
}

func (b *bubble) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-b.events
		if !ok {
			return eventsClosedMsg{}
		}
		return ev
	}
}
