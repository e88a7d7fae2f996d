package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/style"
	"github.com/samber/lo"
)

// checkEngines exits unless at least one registered engine binary is on PATH.
func checkEngines(reg *backend.Registry[*player.Backend]) {
	binaries := lo.FilterMap(reg.IDs(), func(id string, _ int) (string, bool) {
		b, ok := reg.Get(id).Get()
		if !ok {
			return "", false
		}
		return b.Engine.Binary(), true
	})

	found := lo.ContainsBy(binaries, func(bin string) bool {
		_, err := exec.LookPath(bin)
		return err == nil
	})
	if found {
		return
	}

	printMissingEngines(binaries)
	os.Exit(1)
}

// installers maps a platform to the package manager command taking engine names.
var installers = map[string]string{
	constant.Darwin:  "brew install",
	constant.Linux:   "sudo apt install",
	constant.Windows: "scoop install",
}

func printMissingEngines(binaries []string) {
	var installCmd string
	if installer, ok := installers[runtime.GOOS]; ok {
		names := lo.Uniq(lo.Map(binaries, func(bin string, _ int) string {
			return strings.TrimSuffix(filepath.Base(bin), ".exe")
		}))
		installCmd = installer + " " + strings.Join(names, " ")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s No playback engine", style.Fail))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("None of %s was found in your PATH.", strings.Join(binaries, ", ")))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install one, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
