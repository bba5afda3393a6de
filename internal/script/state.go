package script

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/js"
)

// Cell is one reactive state entry.
type Cell struct {
	Key string
	// Init is the JavaScript source of the initial value.
	Init string
	// Subscribers are function expressions called with the new value on
	// every assignment, in registration order.
	Subscribers []string
}

// Subscribe appends a subscriber fragment. Subscribers are never removed.
func (c *Cell) Subscribe(fn string) {
	c.Subscribers = append(c.Subscribers, fn)
}

// StateTable is the ordered set of reactive cells of a component.
type StateTable struct {
	cells []*Cell
	index map[string]int
}

// StateError reports a state declaration the compiler cannot turn into
// cells.
type StateError struct {
	Key    string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state key %q: %s", e.Key, e.Reason)
}

// BuildStateTable turns the $state object literal into cells in
// declaration order. A nil obj gives an empty table.
//
// Initial values must be literals: strings, numbers (optionally signed),
// booleans, null, undefined, regular expressions, template literals without
// substitutions, and arrays or objects made only of those.
func BuildStateTable(obj *js.ObjectExpr) (*StateTable, error) {
	t := &StateTable{index: make(map[string]int)}
	if obj == nil {
		return t, nil
	}

	for _, prop := range obj.List {
		key, err := propertyKey(prop)
		if err != nil {
			return nil, err
		}
		if _, exists := t.index[key]; exists {
			return nil, &StateError{Key: key, Reason: "duplicate key"}
		}
		if v, ok := prop.Value.(*js.Var); ok && string(v.Data) == key && key != "undefined" {
			return nil, &StateError{Key: key, Reason: "shorthand properties are not allowed, write " + key + ": <literal>"}
		}
		if prop.Init != nil {
			return nil, &StateError{Key: key, Reason: "default initializers are not allowed"}
		}
		if !isLiteral(prop.Value) {
			return nil, &StateError{Key: key, Reason: "initial value must be a literal"}
		}

		var init strings.Builder
		prop.Value.JS(&init)
		t.index[key] = len(t.cells)
		t.cells = append(t.cells, &Cell{Key: key, Init: init.String()})
	}
	return t, nil
}

// Lookup returns the cell stored under key.
func (t *StateTable) Lookup(key string) (*Cell, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.cells[i], true
}

// Cells returns the cells in declaration order.
func (t *StateTable) Cells() []*Cell {
	out := make([]*Cell, len(t.cells))
	copy(out, t.cells)
	return out
}

// Len returns the number of cells.
func (t *StateTable) Len() int { return len(t.cells) }

// Keys returns the cell keys in declaration order.
func (t *StateTable) Keys() []string {
	keys := make([]string, 0, len(t.cells))
	for _, c := range t.cells {
		keys = append(keys, c.Key)
	}
	return keys
}

func propertyKey(prop js.Property) (string, error) {
	if prop.Spread {
		return "", &StateError{Key: "...", Reason: "spread properties are not allowed"}
	}
	if m, ok := prop.Value.(*js.MethodDecl); ok {
		return "", &StateError{Key: literalKey(m.Name.Literal), Reason: "methods are not allowed"}
	}
	if prop.Name == nil {
		return "", &StateError{Key: "?", Reason: "property has no name"}
	}
	if prop.Name.IsComputed() {
		var b strings.Builder
		prop.Name.Computed.JS(&b)
		return "", &StateError{Key: "[" + b.String() + "]", Reason: "computed keys are not allowed"}
	}

	return literalKey(prop.Name.Literal), nil
}

func literalKey(lit js.LiteralExpr) string {
	key := string(lit.Data)
	if lit.TokenType == js.StringToken && len(key) >= 2 {
		key = key[1 : len(key)-1]
	}
	return key
}

func isLiteral(e js.IExpr) bool {
	switch v := e.(type) {
	case *js.LiteralExpr:
		switch v.TokenType {
		case js.StringToken, js.TrueToken, js.FalseToken, js.NullToken, js.RegExpToken:
			return true
		}
		return js.IsNumeric(v.TokenType)
	case *js.Var:
		return string(v.Data) == "undefined"
	case *js.UnaryExpr:
		if v.Op != js.NegToken && v.Op != js.PosToken {
			return false
		}
		lit, ok := v.X.(*js.LiteralExpr)
		return ok && js.IsNumeric(lit.TokenType)
	case *js.TemplateExpr:
		return v.Tag == nil && len(v.List) == 0
	case *js.GroupExpr:
		return isLiteral(v.X)
	case *js.ArrayExpr:
		for _, el := range v.List {
			if el.Spread || (el.Value != nil && !isLiteral(el.Value)) {
				return false
			}
		}
		return true
	case *js.ObjectExpr:
		for _, prop := range v.List {
			if prop.Spread || prop.Name == nil || prop.Name.IsComputed() || prop.Init != nil {
				return false
			}
			if !isLiteral(prop.Value) {
				return false
			}
		}
		return true
	}
	return false
}
