package notestore

import (
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/trie"
)

// titleIndex keeps a case-insensitive keyword tree of note titles. Adding a
// note extends the tree; deleting or renaming one rebuilds it.
type titleIndex struct {
	tree *trie.Tree[string]
}

func newTitleIndex() *titleIndex {
	return &titleIndex{tree: trie.New[string](false)}
}

func (ti *titleIndex) add(n *note.Note) {
	if n.Title() == "" {
		return
	}
	ti.tree.AddKeyword(n.Title(), n.URI())
	ti.tree.ComputeFailureGraph()
}

func (ti *titleIndex) rebuild(notes []*note.Note) {
	tree := trie.New[string](false)
	for _, n := range notes {
		if n.Title() == "" {
			continue
		}
		tree.AddKeyword(n.Title(), n.URI())
	}
	tree.ComputeFailureGraph()
	ti.tree = tree
}

func (ti *titleIndex) find(text string) []trie.Hit[string] {
	return ti.tree.FindMatches(text)
}

func (ti *titleIndex) maxLength() int { return ti.tree.MaxLength() }
