// Package style provides a functional API for composing and applying lipgloss-based TUI styles.
package style

import "github.com/charmbracelet/lipgloss"

// Color initializes a lipgloss.Color from an ANSI index or hex value.
func Color(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI palette used by CLI output.
var (
	Red    = Color("1")
	Green  = Color("2")
	Yellow = Color("3")
	Blue   = Color("4")
	Purple = Color("5")
	Cyan   = Color("6")

	HiRed    = Color("9")
	HiPurple = Color("13")
	HiCyan   = Color("14")
)

// Accents used by the playback view.
var (
	Text    = Color("#cdd6f4")
	Subtext = Color("#a6adc8")
	Surface = Color("#313244")
	Mauve   = Color("#cba6f7")
	Peach   = Color("#fab387")
	Mint    = Color("#a6e3a1")

	AccentColor = Mauve
	ErrorColor  = HiRed
	BorderColor = Surface
)
