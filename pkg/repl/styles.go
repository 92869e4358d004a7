package repl

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorTrue    = lipgloss.Color("#10B981")
	colorFalse   = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorInfo    = lipgloss.Color("#3B82F6")
)

type styles struct {
	banner  lipgloss.Style
	heading lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	yes     lipgloss.Style
	no      lipgloss.Style
}

// newStyles builds styles for w. Color is dropped when disabled or when w is
// not a terminal.
func newStyles(w io.Writer, color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}

	r := lipgloss.NewRenderer(w)
	return styles{
		banner: r.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 2),
		heading: r.NewStyle().Bold(true).Foreground(colorInfo),
		info:    r.NewStyle().Foreground(colorInfo),
		muted:   r.NewStyle().Foreground(colorMuted).Italic(true),
		ok:      r.NewStyle().Foreground(colorTrue),
		err:     r.NewStyle().Foreground(colorError),
		yes:     r.NewStyle().Bold(true).Foreground(colorTrue),
		no:      r.NewStyle().Bold(true).Foreground(colorFalse),
	}
}
