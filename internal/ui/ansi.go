package ui

import (
	"fmt"
	"io"
	"os"
)

var (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
	symWarn  = "!"
)

var (
	forceColor   bool
	disableColor bool
)

func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

// colorEnabled reports whether escapes should be written: NO_COLOR wins,
// then the forcing flags, then whether stdout is a terminal.
func colorEnabled() bool {
	if disableColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return forceColor || isTTY()
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func C(color, s string) string {
	if color == "" || !colorEnabled() {
		return s
	}
	return color + s + reset
}

// Dim renders s faint.
func Dim(s string) string { return C(dim, s) }

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, C(current.Success, symCheck+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, C(current.Error, symCross+" "+msg)) }
func Warn(w io.Writer, msg string) { fmt.Fprintln(w, C(current.Pending, symWarn+" "+msg)) }
