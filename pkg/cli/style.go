package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors used by command output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Alert   lipgloss.Color // Positive detections
	Dim     lipgloss.Color // Secondary text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Alert:   lipgloss.Color("#ff5f87"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Alert lipgloss.Style
	Help  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Alert: lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Meter renders score in [0, 1] as a bar of the given width followed by the
// score. Out-of-range scores are clamped.
func Meter(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	s := min(max(score, 0), 1)
	filled := int(s*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "] " + fmt.Sprintf("%.3f", score)
}

// Prediction renders one line for a scored clip. Scores at or above
// threshold use the alert style.
func (s Styles) Prediction(name string, score, threshold float64) string {
	label := s.Label
	if score >= threshold {
		label = s.Alert
	}
	return label.Render(Meter(score, 20)) + " " + s.Help.Render(name)
}

// Truncate shortens s to width cells, adding an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width-1 {
			return string(runes[:i]) + "…"
		}
		currentWidth += w
	}
	return s
}
