package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/projector-cli/projector/style"
)

const notificationTTL = 3 * time.Second

type notifyMsg string

type clearNotificationMsg struct{}

// notifier shows one short-lived message next to the last line of the view.
type notifier struct {
	notification string
}

func notify(text string) tea.Cmd {
	return func() tea.Msg {
		return notifyMsg(text)
	}
}

func clearNotification() tea.Cmd {
	return tea.Tick(notificationTTL, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

func (n *notifier) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case notifyMsg:
		n.notification = string(msg)
		return clearNotification()
	case clearNotificationMsg:
		n.notification = ""
	}
	return nil
}

func (n *notifier) View(content string) string {
	if n.notification == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	lines[len(lines)-1] += "  " + style.Faint(n.notification)
	return strings.Join(lines, "\n")
}
