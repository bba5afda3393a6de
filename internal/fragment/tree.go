// Package fragment holds the document tree of a component source.
//
// The tree is an arena: nodes live in one slice and refer to each other by
// NodeID, so detaching a node never invalidates the IDs of the others.
package fragment

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeID addresses a node inside a Tree.
type NodeID int

// None is the parent of root nodes.
const None NodeID = -1

// Kind tells element, text and comment nodes apart.
type Kind uint8

const (
	ElementNode Kind = iota
	TextNode
	CommentNode
)

func (k Kind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Node is one entry of the arena.
//
// Tag, Namespace, Attrs and Selectors are only meaningful for elements.
// Data is the unescaped text of text nodes and the body of comments.
// Selectors are extra class names merged into the class attribute when the
// tree is rendered.
type Node struct {
	Kind      Kind
	Tag       string
	Namespace string
	Attrs     []html.Attribute
	Selectors []string
	Data      string

	parent   NodeID
	children []NodeID
	detached bool
}

// Tree is a parsed markup fragment.
type Tree struct {
	nodes []Node
	roots []NodeID

	slots      []string
	start, end rune
}

// Parse parses src as the content of a <body> element.
func Parse(src string) (*Tree, error) {
	start, end, ok := pickMarkers(src)
	if !ok {
		return nil, fmt.Errorf("no free private-use code points for slot markers")
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	t := &Tree{start: start, end: end}
	for _, n := range parsed {
		if id, ok := t.add(n, None); ok {
			t.roots = append(t.roots, id)
		}
	}
	return t, nil
}

// add copies n and its descendants into the arena.
func (t *Tree) add(n *html.Node, parent NodeID) (NodeID, bool) {
	var node Node
	switch n.Type {
	case html.ElementNode:
		node = Node{
			Kind:      ElementNode,
			Tag:       n.Data,
			Namespace: n.Namespace,
			Attrs:     slices.Clone(n.Attr),
		}
	case html.TextNode:
		node = Node{Kind: TextNode, Data: n.Data}
	case html.CommentNode:
		node = Node{Kind: CommentNode, Data: n.Data}
	default:
		return None, false
	}
	node.parent = parent

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cid, ok := t.add(c, id); ok {
			t.nodes[id].children = append(t.nodes[id].children, cid)
		}
	}
	return id, true
}

// Len returns the number of nodes ever allocated, detached ones included.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the top-level nodes in document order.
func (t *Tree) Roots() []NodeID {
	return slices.Clone(t.roots)
}

// Node returns the node stored under id. The pointer stays valid until the
// tree is discarded; callers mutate Data, Attrs and Selectors through it.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Children returns the children of id in document order.
func (t *Tree) Children(id NodeID) []NodeID {
	return slices.Clone(t.nodes[id].children)
}

// Parent returns the parent of id, or None for roots.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// Index returns the position of id among its siblings.
func (t *Tree) Index(id NodeID) int {
	siblings := t.roots
	if p := t.nodes[id].parent; p != None {
		siblings = t.nodes[p].children
	}
	return slices.Index(siblings, id)
}

// Detached reports whether id was removed from the tree.
func (t *Tree) Detached(id NodeID) bool {
	return t.nodes[id].detached
}

// Detach removes id from its parent (or the root list). The node and its
// subtree stay in the arena but are no longer walked or rendered.
func (t *Tree) Detach(id NodeID) {
	n := &t.nodes[id]
	if n.detached {
		return
	}
	if n.parent == None {
		t.roots = slices.DeleteFunc(t.roots, func(r NodeID) bool { return r == id })
	} else {
		p := &t.nodes[n.parent]
		p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == id })
	}
	n.detached = true
}

// AddSelector appends a class name to the element's selector list.
// Adding a name that is already present is a no-op.
func (t *Tree) AddSelector(id NodeID, name string) {
	n := &t.nodes[id]
	if !slices.Contains(n.Selectors, name) {
		n.Selectors = append(n.Selectors, name)
	}
}

// RemoveAttrs deletes every attribute for which match returns true and
// returns the removed attributes in their original order.
func (t *Tree) RemoveAttrs(id NodeID, match func(html.Attribute) bool) []html.Attribute {
	n := &t.nodes[id]
	var removed []html.Attribute
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if match(a) {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	n.Attrs = kept
	return removed
}

// Walk visits the attached nodes in pre-order. When fn returns false the
// children of that node are skipped.
func (t *Tree) Walk(fn func(id NodeID) bool) {
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if !fn(id) {
			return
		}
		// children may be detached by fn, iterate over a snapshot
		for _, c := range t.Children(id) {
			if !t.nodes[c].detached {
				visit(c)
			}
		}
	}
	for _, r := range t.Roots() {
		if !t.nodes[r].detached {
			visit(r)
		}
	}
}

// pickMarkers finds a pair of private-use code points absent from src. They
// delimit slot numbers inside rendered markup.
func pickMarkers(src string) (rune, rune, bool) {
	for r := rune(0xE000); r+1 <= 0xF8FF; r += 2 {
		if !strings.ContainsRune(src, r) && !strings.ContainsRune(src, r+1) {
			return r, r + 1, true
		}
	}
	return 0, 0, false
}
