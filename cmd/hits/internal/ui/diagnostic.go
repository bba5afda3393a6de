// Package ui formats compiler diagnostics for the terminal.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/livefir/hits"
	"golang.org/x/term"
)

var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	markStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	contextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintError writes err to w, one block per joined error. Styling is used
// only when w is a terminal.
func PrintError(w io.Writer, err error) {
	fmt.Fprint(w, FormatError(err, IsTerminal(w)))
}

// FormatError renders err as a diagnostic.
func FormatError(err error, styled bool) string {
	if err == nil {
		return ""
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var b strings.Builder
		for i, e := range joined.Unwrap() {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(FormatError(e, styled))
		}
		return b.String()
	}

	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	b.WriteString(style(errorStyle, "error: ") + err.Error() + "\n")

	var syntaxErr hits.ErrScriptSyntax
	var stateErr hits.ErrStateDeclaration
	var dirErr hits.ErrDirective
	var stmtErr hits.ErrScriptStatement
	switch {
	case errors.As(err, &syntaxErr) && syntaxErr.Context != "":
		for _, line := range strings.Split(strings.TrimRight(syntaxErr.Context, "\n"), "\n") {
			if strings.HasPrefix(line, "> ") {
				b.WriteString(style(markStyle, line) + "\n")
			} else {
				b.WriteString(style(contextStyle, line) + "\n")
			}
		}
	case errors.As(err, &stateErr):
		b.WriteString(style(hintStyle, "hint: $state initial values must be literals") + "\n")
	case errors.As(err, &dirErr):
		b.WriteString(style(hintStyle, fmt.Sprintf("hint: give %s a handler, e.g. %s=\"handle\"", dirErr.Attr, dirErr.Attr)) + "\n")
	case errors.As(err, &stmtErr):
		b.WriteString(style(hintStyle, "hint: move the statement into a function called from the markup") + "\n")
	}
	return b.String()
}
