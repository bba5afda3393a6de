package script

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/js"
)

// StateBinding is the identifier that declares the reactive state object.
const StateBinding = "$state"

// Program is a script split into the groups of the emitted module. Every
// top-level statement lands in exactly one group; relative order inside a
// group follows the source.
type Program struct {
	// State is the object literal bound to $state, nil when absent.
	State *js.ObjectExpr

	Hoisted  []string
	Imports  []string
	Residual []string
}

// StatementError reports a top-level statement that is only valid at module
// level and so cannot run inside the component factory.
type StatementError struct {
	Statement string
	Reason    string
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %q: %s", e.Statement, e.Reason)
}

// Classify sorts the top-level statements of ast. A nil ast yields an
// empty program.
//
// Rules, first match wins:
//  1. a single-binding let/const/var of $state to an object literal is the state declaration
//  2. any other variable, function or class declaration is hoisted
//  3. imports, and re-exports with a from clause, are kept at module level
//  4. anything else runs at mount time
//
// An exported declaration is classified as the declaration itself. A
// $state declaration that is not a single object-literal binding is a
// StateError rather than a hoisted declaration, since the factory declares
// $state itself. Local export lists, export default and top-level await
// are StatementErrors: hoisted and mount-time code runs inside a plain
// function.
func Classify(ast *js.AST) (*Program, error) {
	prog := &Program{}
	if ast == nil {
		return prog, nil
	}

	for _, stmt := range ast.List {
		var node js.INode = stmt
		if export, ok := stmt.(*js.ExportStmt); ok {
			switch {
			case export.Module != nil:
				prog.Imports = append(prog.Imports, source(export))
				continue
			case !export.Default && isDecl(export.Decl):
				node = export.Decl
			default:
				return nil, &StatementError{Statement: snippet(export), Reason: "exports other than declarations are not allowed, the module exports only the component"}
			}
		}
		if usesAwait(node) {
			return nil, &StatementError{Statement: snippet(node), Reason: "top-level await is not allowed"}
		}

		switch s := node.(type) {
		case *js.VarDecl:
			obj, err := stateDecl(s)
			if err != nil {
				return nil, err
			}
			if obj == nil {
				prog.Hoisted = append(prog.Hoisted, source(s))
				continue
			}
			if prog.State != nil {
				return nil, &StateError{Key: StateBinding, Reason: "declared more than once"}
			}
			prog.State = obj
		case *js.FuncDecl, *js.ClassDecl:
			prog.Hoisted = append(prog.Hoisted, source(s))
		case *js.ImportStmt:
			prog.Imports = append(prog.Imports, source(s))
		default:
			prog.Residual = append(prog.Residual, source(s))
		}
	}
	return prog, nil
}

func isDecl(e js.IExpr) bool {
	switch e.(type) {
	case *js.VarDecl, *js.FuncDecl, *js.ClassDecl:
		return true
	}
	return false
}

// stateDecl returns the object literal of a $state declaration, nil for
// declarations that do not bind $state.
func stateDecl(decl *js.VarDecl) (*js.ObjectExpr, error) {
	bindsState := false
	for _, item := range decl.List {
		if v, ok := item.Binding.(*js.Var); ok && string(v.Data) == StateBinding {
			bindsState = true
		}
	}
	if !bindsState {
		return nil, nil
	}

	if len(decl.List) != 1 {
		return nil, &StateError{Key: StateBinding, Reason: "must be the only binding of its declaration"}
	}
	obj, ok := decl.List[0].Default.(*js.ObjectExpr)
	if !ok {
		return nil, &StateError{Key: StateBinding, Reason: "must be initialized with an object literal"}
	}
	return obj, nil
}

// source renders a statement back to JavaScript, terminated so that
// statements can be concatenated.
func source(n js.INode) string {
	var b strings.Builder
	n.JS(&b)
	s := strings.TrimSpace(b.String())

	switch n.(type) {
	case *js.FuncDecl, *js.ClassDecl, *js.Comment:
		return s
	}
	if !strings.HasSuffix(s, ";") {
		s += ";"
	}
	return s
}

// snippet is the first line of a statement, for error messages.
func snippet(n js.INode) string {
	line, _, _ := strings.Cut(source(n), "\n")
	return line
}

// usesAwait reports whether n awaits outside any nested function or class.
func usesAwait(n js.INode) bool {
	v := &awaitFinder{}
	js.Walk(v, n)
	return v.found
}

type awaitFinder struct {
	found bool
}

func (v *awaitFinder) Enter(n js.INode) js.IVisitor {
	if v.found {
		return nil
	}
	switch n := n.(type) {
	case *js.FuncDecl, *js.ArrowFunc, *js.MethodDecl, *js.ClassDecl:
		return nil
	case *js.UnaryExpr:
		if n.Op == js.AwaitToken {
			v.found = true
			return nil
		}
	case *js.ForOfStmt:
		if n.Await {
			v.found = true
			return nil
		}
	}
	return v
}

func (v *awaitFinder) Exit(js.INode) {}
