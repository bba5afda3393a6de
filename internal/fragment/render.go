package fragment

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Slot reserves a place for a runtime expression inside text data and
// returns the marker to splice into Node.Data. Markup replaces the marker
// with whatever its slot callback produces for expr.
func (t *Tree) Slot(expr string) string {
	n := len(t.slots)
	t.slots = append(t.slots, expr)
	return string(t.start) + strconv.Itoa(n) + string(t.end)
}

// Slots returns the expressions reserved so far, in reservation order.
func (t *Tree) Slots() []string {
	return slices.Clone(t.slots)
}

// Render serializes the attached nodes through html.Render. Selectors are
// merged into the class attribute; slot markers are written as is.
func (t *Tree) Render(w io.Writer) error {
	for _, r := range t.roots {
		if err := html.Render(w, t.htmlNode(r)); err != nil {
			return fmt.Errorf("failed to render node %d: %w", r, err)
		}
	}
	return nil
}

// Markup renders the tree and rebuilds the output chunk by chunk: static
// text goes through static, every slot marker is replaced by slot(expr).
func (t *Tree) Markup(static, slot func(string) string) (string, error) {
	var buf bytes.Buffer
	if err := t.Render(&buf); err != nil {
		return "", err
	}

	out := buf.String()
	var b strings.Builder
	b.Grow(len(out))
	for {
		i := strings.IndexRune(out, t.start)
		if i < 0 {
			b.WriteString(static(out))
			return b.String(), nil
		}
		b.WriteString(static(out[:i]))

		rest := out[i+utf8.RuneLen(t.start):]
		j := strings.IndexRune(rest, t.end)
		if j < 0 {
			return "", fmt.Errorf("unterminated slot marker at offset %d", i)
		}
		n, err := strconv.Atoi(rest[:j])
		if err != nil || n < 0 || n >= len(t.slots) {
			return "", fmt.Errorf("invalid slot marker %q", rest[:j])
		}
		b.WriteString(slot(t.slots[n]))
		out = rest[j+utf8.RuneLen(t.end):]
	}
}

// htmlNode rebuilds an *html.Node subtree for id.
func (t *Tree) htmlNode(id NodeID) *html.Node {
	n := &t.nodes[id]

	var out *html.Node
	switch n.Kind {
	case ElementNode:
		out = &html.Node{
			Type:      html.ElementNode,
			Data:      n.Tag,
			DataAtom:  atom.Lookup([]byte(n.Tag)),
			Namespace: n.Namespace,
			Attr:      mergeSelectors(n.Attrs, n.Selectors),
		}
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.Data}
	}

	for _, c := range n.children {
		out.AppendChild(t.htmlNode(c))
	}
	return out
}

// mergeSelectors returns attrs with selectors appended to the class
// attribute, creating it after the other attributes when absent.
func mergeSelectors(attrs []html.Attribute, selectors []string) []html.Attribute {
	out := slices.Clone(attrs)
	if len(selectors) == 0 {
		return out
	}

	extra := strings.Join(selectors, " ")
	for i, a := range out {
		if a.Namespace == "" && a.Key == "class" {
			if strings.TrimSpace(a.Val) == "" {
				out[i].Val = extra
			} else {
				out[i].Val = a.Val + " " + extra
			}
			return out
		}
	}
	return append(out, html.Attribute{Key: "class", Val: extra})
}
