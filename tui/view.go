package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/util"
)

const paddingX = 2

var paddingStyle = lipgloss.NewStyle().Padding(1, paddingX)

func (b *bubble) View() string {
	var lines []string

	switch b.state {
	case loadingState:
		lines = b.viewLoading()
	case playingState, endedState:
		lines = b.viewPlaying()
	case errorState:
		lines = b.viewError()
	}

	lines = append(lines, "", b.helpC.View(b.keymap))
	return paddingStyle.Render(b.notifier.View(strings.Join(lines, "\n")))
}

func (b *bubble) header(title string) []string {
	return []string{
		style.Title(title) + " " + style.Tag(style.Surface, style.Mint)(b.engine),
		"",
		b.truncate(style.Fg(style.Purple)(b.ref.String())),
		"",
	}
}

func (b *bubble) viewLoading() []string {
	status := "opening"
	if b.playerState != player.NotRunning {
		status = strings.ToLower(b.playerState.String())
	}

	return append(b.header("Loading"), b.spinnerC.View()+" "+style.Fg(style.Subtext)(status+"..."))
}

func (b *bubble) viewPlaying() []string {
	title := "Now Playing"
	if b.state == endedState {
		title = "Finished"
	}

	length := b.length()
	percent := 0.0
	if length > 0 {
		percent = util.Clamp(b.position/length, 0, 1)
	}

	clock := util.FormatSeconds(b.position)
	if length > 0 {
		clock += " / " + util.FormatSeconds(length)
	}

	lines := append(b.header(title),
		b.progressC.ViewAs(percent),
		fmt.Sprintf("%s  %s", style.Bold(clock), style.Fg(style.Subtext)(b.stateLabel())),
	)

	if summary := b.info.Summary(); summary != "" {
		lines = append(lines, "", style.Faint(summary))
	}
	return lines
}

func (b *bubble) viewError() []string {
	msg := "unknown error"
	if b.lastError != nil {
		msg = b.lastError.Error()
	}

	if b.width > paddingX*2 {
		msg = wrap.String(msg, b.width-paddingX*2-2)
	}

	return []string{
		style.ErrorTitle("Error"),
		"",
		style.Fail + " " + style.Fg(style.ErrorColor)(msg),
	}
}

func (b *bubble) stateLabel() string {
	switch b.playerState {
	case player.Paused:
		return "⏸ paused"
	case player.Playing:
		return "▶ playing"
	default:
		return strings.ToLower(b.playerState.String())
	}
}

func (b *bubble) truncate(s string) string {
	if b.width <= paddingX*2 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(b.width - paddingX*2).Render(s)
}
