package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// style is an SGR parameter string
type style string

const (
	styleInfo    style = "36"
	styleValue   style = "33"
	styleError   style = "31"
	styleSuccess style = "32"
	styleHeading style = "1;35"
)

var (
	quiet   atomic.Bool
	noColor = os.Getenv("NO_COLOR") != ""
)

func (s style) paint(text string) string {
	if noColor {
		return text
	}
	return "\033[" + string(s) + "m" + text + "\033[0m"
}

// SetQuietMode suppresses everything but errors
func SetQuietMode(q bool) { quiet.Store(q) }

// IsQuietMode reports whether output is suppressed
func IsQuietMode() bool { return quiet.Load() }

// IsTerminal reports whether w is a file attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
		return width
	}
	return fallback
}

func emit(w io.Writer, s style, format string, args []interface{}) {
	fmt.Fprintln(w, s.paint(fmt.Sprintf(format, args...)))
}

// PrintError writes to stderr and ignores quiet mode
func PrintError(format string, args ...interface{}) {
	emit(os.Stderr, styleError, format, args)
}

func PrintSuccess(format string, args ...interface{}) {
	if !IsQuietMode() {
		emit(os.Stdout, styleSuccess, format, args)
	}
}

func PrintWarning(format string, args ...interface{}) {
	if !IsQuietMode() {
		emit(os.Stdout, styleValue, format, args)
	}
}

func PrintHeading(text string) {
	if !IsQuietMode() {
		emit(os.Stdout, styleHeading, "%s", []interface{}{text})
	}
}

// PrintInfo prints "label: value"
func PrintInfo(label, value string) {
	if !IsQuietMode() {
		fmt.Printf("%s: %s\n", styleInfo.paint(label), styleValue.paint(value))
	}
}
