package transform

import "strconv"

// DefaultPrefix starts every selector token unless configured otherwise.
const DefaultPrefix = "hits_"

// Allocator hands out selector tokens for one compilation. Tokens are the
// prefix followed by a base-36 counter, so two calls never return the same
// token.
type Allocator struct {
	prefix string
	next   int64
}

// NewAllocator returns an allocator for prefix, or DefaultPrefix when
// prefix is empty.
func NewAllocator(prefix string) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Allocator{prefix: prefix}
}

// Next returns a fresh token.
func (a *Allocator) Next() string {
	tok := a.prefix + strconv.FormatInt(a.next, 36)
	a.next++
	return tok
}

// Count returns how many tokens were handed out.
func (a *Allocator) Count() int { return int(a.next) }
