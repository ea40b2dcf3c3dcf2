// Package tags keeps the registry of note tags and the conventions built on
// top of them: system tags, notebooks and template markers.
package tags

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SystemTagPrefix marks tags used for internal bookkeeping.
const SystemTagPrefix = "system:"

// Normalize returns the registry key for a tag name: trimmed and lowercased.
func Normalize(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// Tag is a named label together with the uris of the notes that carry it.
type Tag struct {
	name       string
	normalized string
	system     bool
	property   bool
	notes      map[string]struct{}
}

func newTag(name string) *Tag {
	t := &Tag{notes: make(map[string]struct{})}
	t.setName(name)
	return t
}

func (t *Tag) setName(name string) {
	t.name = strings.TrimSpace(name)
	t.normalized = Normalize(t.name)
	t.system = strings.HasPrefix(t.normalized, SystemTagPrefix)
	t.property = len(strings.Split(t.normalized, ":")) >= 3
}

// Name returns the display name.
func (t *Tag) Name() string { return t.name }

// NormalizedName returns the lowercase registry key.
func (t *Tag) NormalizedName() string { return t.normalized }

// IsSystem reports whether the tag carries the system: prefix.
func (t *Tag) IsSystem() bool { return t.system }

// IsProperty reports whether the name has three or more colon-separated parts.
func (t *Tag) IsProperty() bool { return t.property }

// AddNote records uri as a member and reports whether it was new.
func (t *Tag) AddNote(uri string) bool {
	if _, ok := t.notes[uri]; ok {
		return false
	}
	t.notes[uri] = struct{}{}
	return true
}

// RemoveNote drops uri from the members and reports whether it was present.
func (t *Tag) RemoveNote(uri string) bool {
	if _, ok := t.notes[uri]; !ok {
		return false
	}
	delete(t.notes, uri)
	return true
}

// HasNote reports whether the note with uri carries the tag.
func (t *Tag) HasNote(uri string) bool {
	_, ok := t.notes[uri]
	return ok
}

// NoteURIs returns the member uris in sorted order.
func (t *Tag) NoteURIs() []string {
	out := make([]string, 0, len(t.notes))
	for uri := range t.notes {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// Popularity is the number of notes carrying the tag.
func (t *Tag) Popularity() int { return len(t.notes) }
