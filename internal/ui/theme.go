package ui

import "strings"

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymUnchecked, SymDue                 string

	// NoTagColor renders tags without their own colour.
	NoTagColor bool
}

// Themes lists the accepted theme names.
var Themes = []string{"classic", "neon", "mono"}

var current = classic()

func classic() Theme {
	return Theme{
		Name:  "classic",
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•", SymDue: "⏰",
	}
}

// SetTheme switches the current theme. Unknown names fall back to classic
// and report false.
func SetTheme(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "neon":
		current = Theme{
			Name:  "neon",
			Title: "\033[95m", // bright magenta
			Muted: fgGray, Accent: "\033[96m",
			Success: fgGreen, Error: fgRed, Pending: "\033[93m",
			BoxUnchecked: "◻", BoxChecked: "◼",
			CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
			H: "─", V: "│",
			SymDone: "✔", SymUnchecked: "•", SymDue: "⏰",
		}
	case "mono":
		disableColor = true
		current = Theme{
			Name:         "mono",
			BoxUnchecked: "[ ]", BoxChecked: "[x]",
			CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
			H: "-", V: "|",
			SymDone: "x", SymUnchecked: "-", SymDue: "due",
			NoTagColor: true,
		}
	case "classic", "":
		current = classic()
	default:
		current = classic()
		return false
	}
	return true
}

// Expose what renderers need
func Current() Theme { return current }
