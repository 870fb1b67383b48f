package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/sys/unix"
)

// Styles holds the lipgloss styles for text output.
type Styles struct {
	Filename  lipgloss.Style
	LineNum   lipgloss.Style
	Separator lipgloss.Style
	Category  lipgloss.Style
	Match     lipgloss.Style // used when a category has no colors

	renderer *lipgloss.Renderer
}

// NewStyles creates the default color styles. The renderer is forced to true
// color because the caller has already decided that color is wanted.
func NewStyles() Styles {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(termenv.TrueColor)
	return Styles{
		Filename:  r.NewStyle().Foreground(lipgloss.Color("5")), // magenta
		LineNum:   r.NewStyle().Foreground(lipgloss.Color("2")), // green
		Separator: r.NewStyle().Foreground(lipgloss.Color("6")), // cyan
		Category:  r.NewStyle().Foreground(lipgloss.Color("4")).Italic(true),
		Match:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true), // bold red
		renderer:  r,
	}
}

// NoStyles returns styles with no coloring.
func NoStyles() Styles {
	return Styles{
		Filename:  lipgloss.NewStyle(),
		LineNum:   lipgloss.NewStyle(),
		Separator: lipgloss.NewStyle(),
		Category:  lipgloss.NewStyle(),
		Match:     lipgloss.NewStyle(),
	}
}

// matchStyle paints matched text with the category's background color and
// text color. Either may be empty.
func (s Styles) matchStyle(color, fColor string) lipgloss.Style {
	if s.renderer == nil || (color == "" && fColor == "") {
		return s.Match
	}
	st := s.renderer.NewStyle()
	if color != "" {
		st = st.Background(lipgloss.Color(color))
	}
	if fColor != "" {
		st = st.Foreground(lipgloss.Color(fColor))
	}
	return st
}

// IsTerminal checks if the given file descriptor is a terminal using ioctl.
func IsTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}
