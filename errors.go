package hits

import (
	"errors"
	"fmt"
	"strings"

	"github.com/livefir/hits/internal/script"
	"github.com/livefir/hits/internal/transform"
)

// ErrMarkupParse is returned when the document is not parseable markup.
type ErrMarkupParse struct {
	Err error
}

func (e ErrMarkupParse) Error() string {
	return fmt.Sprintf("failed to parse markup: %v", e.Err)
}

func (e ErrMarkupParse) Unwrap() error { return e.Err }

// ErrScriptSyntax is returned when the component script is not a valid
// module. Line and Column point into the whole document; Context is an
// excerpt of the surrounding lines with the failing one marked.
type ErrScriptSyntax struct {
	Line    int
	Column  int
	Message string
	Context string
	Err     error
}

func (e ErrScriptSyntax) Error() string {
	return fmt.Sprintf("script syntax error on line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func (e ErrScriptSyntax) Unwrap() error { return e.Err }

// ErrStateDeclaration is returned for a $state declaration that cannot be
// turned into reactive cells.
type ErrStateDeclaration struct {
	Key    string
	Reason string
	Err    error
}

func (e ErrStateDeclaration) Error() string {
	return fmt.Sprintf("invalid state declaration: %s: %s", e.Key, e.Reason)
}

func (e ErrStateDeclaration) Unwrap() error { return e.Err }

// ErrScriptStatement is returned for a top-level script statement that a
// component cannot contain, such as an export list or top-level await.
type ErrScriptStatement struct {
	Statement string
	Reason    string
	Err       error
}

func (e ErrScriptStatement) Error() string {
	return fmt.Sprintf("unsupported script statement %s: %s", e.Statement, e.Reason)
}

func (e ErrScriptStatement) Unwrap() error { return e.Err }

// ErrDirective is returned for an @event attribute without a usable
// handler.
type ErrDirective struct {
	Tag    string
	Attr   string
	Reason string
	Err    error
}

func (e ErrDirective) Error() string {
	return fmt.Sprintf("invalid directive %s on <%s>: %s", e.Attr, e.Tag, e.Reason)
}

func (e ErrDirective) Unwrap() error { return e.Err }

// scriptError maps a script failure to ErrScriptSyntax, moving its position
// from the script text into the document.
func scriptError(doc string, err error) error {
	var syntaxErr *script.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}

	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	line, column := syntaxErr.Line, syntaxErr.Column
	if start := strings.Index(doc, syntaxErr.Source); start >= 0 && syntaxErr.Source != "" {
		before := doc[:start]
		startLine := strings.Count(before, "\n") + 1
		startCol := start - strings.LastIndex(before, "\n")
		if line == 1 {
			column += startCol - 1
		}
		line += startLine - 1
	}

	return ErrScriptSyntax{
		Line:    line,
		Column:  column,
		Message: syntaxErr.Message,
		Context: contextLines(doc, line, 2),
		Err:     err,
	}
}

func stateError(err error) error {
	var stateErr *script.StateError
	if errors.As(err, &stateErr) {
		return ErrStateDeclaration{Key: stateErr.Key, Reason: stateErr.Reason, Err: err}
	}
	var stmtErr *script.StatementError
	if errors.As(err, &stmtErr) {
		return ErrScriptStatement{Statement: stmtErr.Statement, Reason: stmtErr.Reason, Err: err}
	}
	return err
}

func directiveError(err error) error {
	var dirErr *transform.DirectiveError
	if errors.As(err, &dirErr) {
		return ErrDirective{Tag: dirErr.Tag, Attr: dirErr.Attr, Reason: dirErr.Reason, Err: err}
	}
	return err
}

// contextLines returns the lines around lineNumber with the line itself
// marked by "> ".
func contextLines(source string, lineNumber, contextSize int) string {
	lines := strings.Split(source, "\n")

	start := max(lineNumber-contextSize-1, 0)
	end := min(lineNumber+contextSize, len(lines))

	var b strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		if i+1 == lineNumber {
			prefix = "> "
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", prefix, i+1, lines[i])
	}
	return b.String()
}
