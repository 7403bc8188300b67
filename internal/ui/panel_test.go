package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/idilsaglam/todoclient/internal/model"
)

func TestProgressBar(t *testing.T) {
	got := ProgressBar(1, 4, 8)
	if got != "██░░░░░░  25%" {
		t.Fatalf("ProgressBar = %q", got)
	}
	if got := ProgressBar(0, 0, 2); !strings.HasSuffix(got, "  0%") || Width(got) != 10 {
		t.Fatalf("empty bar = %q", got)
	}
}

func TestPanelPadsToWidestLine(t *testing.T) {
	SetTheme("mono")
	defer SetColorForcing(false, false)
	defer SetTheme("classic")

	var buf bytes.Buffer
	Panel(&buf, []string{"ab", "\033[32mabcd\033[0m", "ü"})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "+------+" {
		t.Fatalf("top = %q", lines[0])
	}
	for _, ln := range lines[1:4] {
		if Width(ln) != 8 {
			t.Fatalf("row %q has width %d", ln, Width(ln))
		}
	}
}

func TestTagPlainWithoutColor(t *testing.T) {
	SetColorForcing(false, true)
	defer SetColorForcing(false, false)
	got := Tags([]model.Tag{{Name: "home", Color: "#ff0000"}, {Name: "work"}})
	if got != "#home #work" {
		t.Fatalf("Tags = %q", got)
	}
}

func TestSetThemeUnknown(t *testing.T) {
	defer SetTheme("classic")
	if SetTheme("plaid") {
		t.Fatal("unknown theme accepted")
	}
	if Current().Name != "classic" {
		t.Fatalf("theme = %q", Current().Name)
	}
	if !SetTheme("Neon") || Current().BoxChecked != "◼" {
		t.Fatalf("neon = %+v", Current())
	}
}

func TestOKAndFail(t *testing.T) {
	SetColorForcing(false, true)
	defer SetColorForcing(false, false)
	var buf bytes.Buffer
	OK(&buf, "saved")
	Fail(&buf, "nope")
	if buf.String() != "✔ saved\n✖ nope\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
