// Package script separates the component script from the markup and sorts
// its top-level statements into the groups the emitted module needs.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/livefir/hits/internal/fragment"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// Extraction is the component script pulled out of a document tree.
type Extraction struct {
	// AST is nil when the document has no script element.
	AST *js.AST
	// Source is the raw text of the script element.
	Source string
	// Node is the detached script element, or fragment.None.
	Node fragment.NodeID
	// Ignored lists further top-level script elements. They stay in the
	// tree untouched.
	Ignored []fragment.NodeID
}

// SyntaxError reports a script that does not parse as a module.
// Line and Column are relative to Source.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
	Context string
	Source  string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("script syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Extract finds the first top-level script element, parses its text and
// detaches the element from the tree. Only roots are scanned.
func Extract(tree *fragment.Tree) (*Extraction, error) {
	ext := &Extraction{Node: fragment.None}

	for _, id := range tree.Roots() {
		n := tree.Node(id)
		if n.Kind != fragment.ElementNode || n.Tag != "script" {
			continue
		}
		if ext.Node != fragment.None {
			ext.Ignored = append(ext.Ignored, id)
			continue
		}
		ext.Node = id
	}
	if ext.Node == fragment.None {
		return ext, nil
	}

	var src strings.Builder
	for _, c := range tree.Children(ext.Node) {
		if child := tree.Node(c); child.Kind == fragment.TextNode {
			src.WriteString(child.Data)
		}
	}
	ext.Source = src.String()

	ast, err := Parse(ext.Source)
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			syntaxErr.Source = ext.Source
		}
		return nil, err
	}
	ext.AST = ast
	tree.Detach(ext.Node)
	return ext, nil
}

// Parse parses src as an ECMAScript module.
func Parse(src string) (*js.AST, error) {
	ast, err := js.Parse(parse.NewInputString(src), js.Options{})
	if err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			return nil, &SyntaxError{
				Line:    perr.Line,
				Column:  perr.Column,
				Message: perr.Message,
				Context: perr.Context,
				Err:     err,
			}
		}
		return nil, &SyntaxError{Message: err.Error(), Err: err}
	}
	return ast, nil
}
