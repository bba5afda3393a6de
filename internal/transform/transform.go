// Package transform rewrites a component tree for the runtime: text
// interpolations become template-literal slots, state references get DOM
// subscribers and @event attributes become event listener registrations.
package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/livefir/hits/internal/fragment"
	"github.com/livefir/hits/internal/jsgen"
	"github.com/livefir/hits/internal/script"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	// interpolation matches {expr} with no nested braces.
	interpolation = regexp.MustCompile(`\{([^{}]+)\}`)
	// stateRef matches an expression that is exactly $state.<key>.
	stateRef = regexp.MustCompile(`^\s*\$state\.([A-Za-z_$][A-Za-z0-9_$]*)\s*$`)
)

// Options configures a transformation.
type Options struct {
	// Prefix of the selector tokens, DefaultPrefix when empty.
	Prefix string
	Logger *zap.Logger
}

// Binding is one event listener extracted from an @event attribute.
type Binding struct {
	Token   string
	Event   string
	Handler string
}

// Result is what the transformation produced besides the mutated tree.
type Result struct {
	// Bindings in document order.
	Bindings []Binding
	// Fragments holds one mount-time fragment per element with bindings,
	// in pre-order.
	Fragments []string
	// Subscribers is the number of subscriber fragments added to cells.
	Subscribers int
	// Tokens is the number of selector tokens allocated.
	Tokens int
}

// DirectiveError reports an @event attribute that cannot become a listener.
type DirectiveError struct {
	Tag    string
	Attr   string
	Reason string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("<%s %s>: %s", e.Tag, e.Attr, e.Reason)
}

type transformer struct {
	tree   *fragment.Tree
	table  *script.StateTable
	alloc  *Allocator
	log    *zap.Logger
	result *Result
}

// Transform walks tree in pre-order and rewrites it in place. table may be
// nil when the component has no state. Running Transform again on the same
// tree changes nothing.
func Transform(tree *fragment.Tree, table *script.StateTable, opts Options) (*Result, error) {
	if table == nil {
		table, _ = script.BuildStateTable(nil)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	t := &transformer{
		tree:   tree,
		table:  table,
		alloc:  NewAllocator(opts.Prefix),
		log:    log,
		result: &Result{},
	}

	var err error
	tree.Walk(func(id fragment.NodeID) bool {
		if err != nil {
			return false
		}
		n := tree.Node(id)
		switch n.Kind {
		case fragment.ElementNode:
			if err = t.directives(id); err != nil {
				return false
			}
			return !rawText(n.Tag)
		case fragment.TextNode:
			t.interpolate(id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	t.result.Tokens = t.alloc.Count()
	return t.result, nil
}

// rawText reports elements whose text is never interpolated.
func rawText(tag string) bool {
	return tag == "script" || tag == "style"
}

// token returns the selector token of an element, allocating one on first
// use.
func (t *transformer) token(id fragment.NodeID) string {
	n := t.tree.Node(id)
	if len(n.Selectors) > 0 {
		return n.Selectors[0]
	}
	tok := t.alloc.Next()
	t.tree.AddSelector(id, tok)
	t.log.Debug("allocated selector token", zap.String("token", tok), zap.String("tag", n.Tag))
	return tok
}

// part is a piece of a text node: static text or an interpolated expression.
type part struct {
	text string
	expr bool
}

func (t *transformer) interpolate(id fragment.NodeID) {
	n := t.tree.Node(id)
	matches := interpolation.FindAllStringSubmatchIndex(n.Data, -1)
	if len(matches) == 0 {
		return
	}

	var parts []part
	last := 0
	for _, m := range matches {
		expr := n.Data[m[2]:m[3]]
		if strings.TrimSpace(expr) == "" {
			continue
		}
		if m[0] > last {
			parts = append(parts, part{text: n.Data[last:m[0]]})
		}
		parts = append(parts, part{text: expr, expr: true})
		last = m[1]
	}
	if last == 0 {
		return
	}
	if last < len(n.Data) {
		parts = append(parts, part{text: n.Data[last:]})
	}

	var data strings.Builder
	for _, p := range parts {
		if p.expr {
			data.WriteString(t.tree.Slot(p.text))
		} else {
			data.WriteString(p.text)
		}
	}
	n.Data = data.String()

	for i, p := range parts {
		if !p.expr {
			continue
		}
		m := stateRef.FindStringSubmatch(p.text)
		if m == nil {
			continue
		}
		cell, ok := t.table.Lookup(m[1])
		if !ok {
			t.log.Debug("unresolved state reference", zap.String("expr", p.text))
			continue
		}
		parent := t.tree.Parent(id)
		if parent == fragment.None {
			t.log.Debug("state reference outside an element is not reactive", zap.String("key", cell.Key))
			continue
		}
		cell.Subscribe(t.subscriber(id, parent, parts, i))
		t.result.Subscribers++
	}
}

// subscriber renders the update function for parts[trigger] of text node id.
func (t *transformer) subscriber(id, parent fragment.NodeID, parts []part, trigger int) string {
	var text strings.Builder
	text.WriteByte('`')
	for i, p := range parts {
		switch {
		case i == trigger:
			text.WriteString("${value}")
		case p.expr:
			text.WriteString("${" + p.text + "}")
		default:
			text.WriteString(jsgen.EscapeTemplate(p.text))
		}
	}
	text.WriteByte('`')

	sel := jsgen.Quote(t.selector(parent))
	if len(t.tree.Children(parent)) == 1 {
		return fmt.Sprintf("(value) => {\n\tconst el = $target.querySelector(%s);\n\tif (el) el.textContent = %s;\n}",
			sel, text.String())
	}

	// A text node that rendered empty does not exist in the DOM, so it is
	// found after its preceding non-text siblings and created when missing.
	return fmt.Sprintf("(value) => {\n"+
		"\tconst el = $target.querySelector(%s);\n"+
		"\tif (!el) return;\n"+
		"\tlet ref = el.firstChild;\n"+
		"\tfor (let n = %d; ref && n > 0; ref = ref.nextSibling) if (ref.nodeType !== 3) n--;\n"+
		"\tconst node = ref && ref.nodeType === 3 ? ref : el.insertBefore(document.createTextNode(''), ref);\n"+
		"\tnode.nodeValue = %s;\n"+
		"}", sel, t.precedingNonText(id), text.String())
}

// precedingNonText counts the element and comment siblings before id.
func (t *transformer) precedingNonText(id fragment.NodeID) int {
	n := 0
	for _, sib := range t.tree.Children(t.tree.Parent(id)) {
		if sib == id {
			break
		}
		if t.tree.Node(sib).Kind != fragment.TextNode {
			n++
		}
	}
	return n
}

func (t *transformer) selector(id fragment.NodeID) string {
	return t.tree.Node(id).Tag + "." + t.token(id)
}

func (t *transformer) directives(id fragment.NodeID) error {
	n := t.tree.Node(id)
	removed := t.tree.RemoveAttrs(id, func(a html.Attribute) bool {
		return a.Namespace == "" && strings.HasPrefix(a.Key, "@")
	})
	if len(removed) == 0 {
		return nil
	}

	var bindings []Binding
	for _, a := range removed {
		event := strings.TrimPrefix(a.Key, "@")
		if event == "" {
			return &DirectiveError{Tag: n.Tag, Attr: a.Key, Reason: "missing event name"}
		}
		handler, err := handlerExpr(a.Val)
		if err != nil {
			return &DirectiveError{Tag: n.Tag, Attr: a.Key, Reason: err.Error()}
		}
		bindings = append(bindings, Binding{Event: event, Handler: handler})
	}

	tok := t.token(id)
	ref := "_" + jsgen.Ident(tok)

	var frag strings.Builder
	fmt.Fprintf(&frag, "const %s = $target.querySelector(%s);\n", ref, jsgen.Quote(t.selector(id)))
	for i := range bindings {
		b := &bindings[i]
		b.Token = tok
		fn := jsgen.Ident(b.Event) + "_" + jsgen.Ident(tok)
		fmt.Fprintf(&frag, "function %s(...args) { return (%s)(...args); }\n", fn, b.Handler)
		fmt.Fprintf(&frag, "%s.addEventListener(%s, %s);\n", ref, jsgen.Quote(b.Event), fn)
	}

	t.result.Bindings = append(t.result.Bindings, bindings...)
	t.result.Fragments = append(t.result.Fragments, strings.TrimSuffix(frag.String(), "\n"))
	t.log.Debug("extracted event bindings", zap.String("token", tok), zap.Int("count", len(bindings)))
	return nil
}

// handlerExpr trims a directive value, unwraps the {handler} form and
// checks that the result parses as an expression.
func handlerExpr(val string) (string, error) {
	h := strings.TrimSpace(val)
	if strings.HasPrefix(h, "{") && strings.HasSuffix(h, "}") {
		h = strings.TrimSpace(h[1 : len(h)-1])
	}
	if h == "" {
		return "", fmt.Errorf("empty handler")
	}
	if _, err := script.Parse("(" + h + ");"); err != nil {
		return "", fmt.Errorf("handler %q is not an expression", h)
	}
	return h, nil
}
