// Package emit assembles the JavaScript component module.
package emit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/livefir/hits/internal/fragment"
	"github.com/livefir/hits/internal/jsgen"
	"github.com/livefir/hits/internal/script"
)

// DefaultName is used when no component name is given.
const DefaultName = "Component"

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Parts is everything the module is built from.
type Parts struct {
	// Name of the exported factory function.
	Name string
	Tree *fragment.Tree

	Imports   []string
	Cells     []*script.Cell
	Hoisted   []string
	Residual  []string
	Fragments []string
}

// stateContainer backs $state with the cell table. Assigning a key stores
// the value and runs the key's subscribers before the assignment returns.
const stateContainer = `	const $state = new Proxy($$cells, {
		get(cells, key) {
			return Object.prototype.hasOwnProperty.call(cells, key) ? cells[key].value : undefined;
		},
		set(cells, key, value) {
			if (!Object.prototype.hasOwnProperty.call(cells, key)) {
				cells[key] = { value, subscribers: [] };
			}
			cells[key].value = value;
			for (const subscriber of cells[key].subscribers) {
				subscriber(value);
			}
			return true;
		},
	});
`

// Module renders the component module: imports, then a default export
// factory holding the state container, the hoisted declarations, the render
// function and the mount hook.
func Module(p Parts) (string, error) {
	name := p.Name
	if name == "" {
		name = DefaultName
	}
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("component name %q is not an identifier", name)
	}

	markup, err := Markup(p.Tree)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, imp := range p.Imports {
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	if len(p.Imports) > 0 {
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "export default function %s($target, $props = {}) {\n", name)

	b.WriteString("\tconst $$cells = {\n")
	for _, c := range p.Cells {
		fmt.Fprintf(&b, "\t\t%s: {\n\t\t\tvalue: %s,\n\t\t\tsubscribers: [\n", jsgen.Quote(c.Key), c.Init)
		for _, sub := range c.Subscribers {
			b.WriteString(sub)
			b.WriteString(",\n")
		}
		b.WriteString("\t\t\t],\n\t\t},\n")
	}
	b.WriteString("\t};\n")
	b.WriteString(stateContainer)
	b.WriteByte('\n')

	for _, h := range p.Hoisted {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	if len(p.Hoisted) > 0 {
		b.WriteByte('\n')
	}

	b.WriteString("\tfunction $$render() {\n\t\treturn `")
	b.WriteString(markup)
	b.WriteString("`;\n\t}\n\n")
	b.WriteString("\t$target.innerHTML = $$render();\n\n")

	b.WriteString("\treturn {\n\t\tmount() {\n")
	for _, r := range p.Residual {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	for _, f := range p.Fragments {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteString("\t\t},\n\t};\n}\n")

	return b.String(), nil
}

// Markup renders tree as the body of a template literal: static text is
// escaped and every slot becomes ${expr}.
func Markup(tree *fragment.Tree) (string, error) {
	if tree == nil {
		return "", nil
	}
	out, err := tree.Markup(jsgen.EscapeTemplate, func(expr string) string {
		return "${" + expr + "}"
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize markup: %w", err)
	}
	return out, nil
}
