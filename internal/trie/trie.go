// Package trie implements multi-keyword matching (Aho–Corasick) over rune text.
package trie

import "unicode"

// Hit is one keyword occurrence. Start and End are rune offsets into the
// searched text; Key is the matched text as it appears there.
type Hit[V any] struct {
	Start int
	End   int
	Key   string
	Value V
}

type state[V any] struct {
	next  map[rune]*state[V]
	fail  *state[V]
	dict  *state[V] // nearest final state on the fail chain
	depth int
	final bool
	value V
}

func newState[V any](depth int) *state[V] {
	return &state[V]{next: make(map[rune]*state[V]), depth: depth}
}

// Tree maps keywords to values and finds every keyword occurrence in a text.
type Tree[V any] struct {
	root          *state[V]
	caseSensitive bool
	maxLength     int
	size          int
	stale         bool
}

// New returns an empty tree.
func New[V any](caseSensitive bool) *Tree[V] {
	return &Tree[V]{root: newState[V](-1), caseSensitive: caseSensitive}
}

func (t *Tree[V]) fold(r rune) rune {
	if t.caseSensitive {
		return r
	}
	return unicode.ToLower(r)
}

// AddKeyword inserts keyword with its value. Re-adding a keyword replaces the value.
func (t *Tree[V]) AddKeyword(keyword string, value V) {
	runes := []rune(keyword)
	if len(runes) == 0 {
		return
	}
	cur := t.root
	for i, r := range runes {
		c := t.fold(r)
		nxt, ok := cur.next[c]
		if !ok {
			nxt = newState[V](i)
			cur.next[c] = nxt
		}
		cur = nxt
	}
	if !cur.final {
		t.size++
	}
	cur.final = true
	cur.value = value
	if len(runes) > t.maxLength {
		t.maxLength = len(runes)
	}
	t.stale = true
}

// ComputeFailureGraph links every state to its longest proper suffix state.
// It must run after keywords are added; FindMatches runs it when needed.
func (t *Tree[V]) ComputeFailureGraph() {
	queue := make([]*state[V], 0, len(t.root.next))
	for _, child := range t.root.next {
		child.fail = t.root
		child.dict = nil
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for c, child := range s.next {
			f := s.fail
			for f != nil && f.next[c] == nil {
				f = f.fail
			}
			if f == nil {
				child.fail = t.root
			} else {
				child.fail = f.next[c]
			}
			if child.fail.final {
				child.dict = child.fail
			} else {
				child.dict = child.fail.dict
			}
			queue = append(queue, child)
		}
	}
	t.stale = false
}

// FindMatches returns every keyword occurrence in haystack ordered by end
// offset, longer keywords first for equal ends.
func (t *Tree[V]) FindMatches(haystack string) []Hit[V] {
	if t.stale {
		t.ComputeFailureGraph()
	}
	runes := []rune(haystack)
	var hits []Hit[V]
	cur := t.root
	for i, r := range runes {
		c := t.fold(r)
		for cur != t.root && cur.next[c] == nil {
			cur = cur.fail
		}
		if nxt, ok := cur.next[c]; ok {
			cur = nxt
		}
		s := cur
		if !s.final {
			s = s.dict
		}
		for ; s != nil; s = s.dict {
			start := i + 1 - (s.depth + 1)
			hits = append(hits, Hit[V]{
				Start: start,
				End:   i + 1,
				Key:   string(runes[start : i+1]),
				Value: s.value,
			})
		}
	}
	return hits
}

// MaxLength is the rune length of the longest keyword ever added.
func (t *Tree[V]) MaxLength() int { return t.maxLength }

// Len is the number of distinct keywords.
func (t *Tree[V]) Len() int { return t.size }
