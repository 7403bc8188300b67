package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

var (
	mdMu sync.Mutex
	// Renderers are cached by style and width; building one is slow and
	// auto-style detection can block on terminal queries.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders a todo description for the detail pane. On any
// renderer error the raw text is returned.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	width = max(width, 10)
	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// markdownStyle picks light or dark from TODO_MD_STYLE, then the COLORFGBG
// hint ("fg;bg", bg 7 and up is light). Dark is the default.
func markdownStyle() string {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("TODO_MD_STYLE"))); v {
	case "light", "dark", "notty":
		return v
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(parts[len(parts)-1]); err == nil && bg >= 7 {
			return "light"
		}
	}
	return "dark"
}
