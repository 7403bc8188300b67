package ui

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/idilsaglam/todoclient/internal/model"
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRegexp.ReplaceAllString(s, "") }

// Width is the printed width of s, ignoring escapes.
func Width(s string) int { return runewidth.StringWidth(stripANSI(s)) }

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel draws a framed box using the current theme.
func Panel(w io.Writer, lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		maxw = max(maxw, Width(ln))
	}
	pad := func(s string) string {
		if vis := Width(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	fmt.Fprintln(w, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(w, t.V+" "+pad(ln)+" "+t.V)
	}
	fmt.Fprintln(w, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// Tag renders a tag as "#name" in its own colour.
func Tag(tg model.Tag) string {
	label := "#" + tg.Name
	if current.NoTagColor || !colorEnabled() {
		return label
	}
	color := tg.Color
	if color == "" {
		color = model.DefaultTagColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(label)
}

// Tags joins rendered tags with spaces.
func Tags(tags []model.Tag) string {
	out := make([]string, len(tags))
	for i, tg := range tags {
		out[i] = Tag(tg)
	}
	return strings.Join(out, " ")
}

// Truncate shortens s to at most n columns, ending in "...".
func Truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}
