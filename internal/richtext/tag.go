// Package richtext models a note body as text annotated with tag ranges,
// including bulleted lists, and converts it to and from <note-content> markup.
package richtext

import (
	"fmt"
	"sort"
)

// Flags describe what a tag may do.
type Flags uint8

const (
	CanSerialize Flags = 1 << iota
	CanUndo
	CanGrow
	CanSpellCheck
	CanActivate
	CanSplit
)

// Direction is the writing direction of a bulleted line.
type Direction int

const (
	DirectionLTR Direction = iota
	DirectionRTL
	DirectionNeutral
)

func (d Direction) String() string {
	switch d {
	case DirectionRTL:
		return "rtl"
	case DirectionNeutral:
		return "neutral"
	default:
		return "ltr"
	}
}

func parseDirection(s string) Direction {
	if s == "rtl" {
		return DirectionRTL
	}
	return DirectionLTR
}

// Tag annotates ranges of a Document. Depth tags mark bullets; dynamic tags
// carry attributes written to the markup.
type Tag struct {
	name      string
	element   string
	flags     Flags
	depth     int
	direction Direction
	dynamic   bool
	attrs     map[string]string
	// priority orders tags covering the same text; later tags nest inside.
	priority int
}

// NewTag returns a tag whose element name is its name. Every tag can be
// serialized and split unless told otherwise.
func NewTag(name string, flags Flags) *Tag {
	return &Tag{
		name:    name,
		element: name,
		flags:   flags | CanSerialize | CanSplit,
		depth:   -1,
	}
}

func newDepthTag(depth int, dir Direction) *Tag {
	if dir != DirectionRTL {
		dir = DirectionLTR
	}
	return &Tag{
		name:      depthTagName(depth, dir),
		element:   "list-item",
		flags:     CanSerialize | CanSplit,
		depth:     depth,
		direction: dir,
	}
}

func depthTagName(depth int, dir Direction) string {
	return fmt.Sprintf("depth:%d:%s", depth, dir)
}

func (t *Tag) Name() string        { return t.name }
func (t *Tag) ElementName() string { return t.element }
func (t *Tag) Flags() Flags        { return t.flags }

// Has reports whether every flag in f is set.
func (t *Tag) Has(f Flags) bool { return t.flags&f == f }

// SetFlag turns f on or off.
func (t *Tag) SetFlag(f Flags, on bool) {
	if on {
		t.flags |= f
	} else {
		t.flags &^= f
	}
}

func (t *Tag) CanSerialize() bool { return t.Has(CanSerialize) }
func (t *Tag) CanGrow() bool      { return t.Has(CanGrow) }
func (t *Tag) CanActivate() bool  { return t.Has(CanActivate) }

// IsDepth reports whether t is a bullet depth tag.
func (t *Tag) IsDepth() bool { return t.depth >= 0 }

// Depth is the indentation level of a depth tag, -1 otherwise.
func (t *Tag) Depth() int { return t.depth }

func (t *Tag) Direction() Direction { return t.direction }

// IsDynamic reports whether t was created from a registered dynamic element.
func (t *Tag) IsDynamic() bool { return t.dynamic }

// Attribute returns a dynamic tag attribute.
func (t *Tag) Attribute(name string) (string, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

// SetAttribute sets a dynamic tag attribute.
func (t *Tag) SetAttribute(name, value string) {
	if t.attrs == nil {
		t.attrs = make(map[string]string)
	}
	t.attrs[name] = value
}

// attributeNames returns attribute names in a stable order.
func (t *Tag) attributeNames() []string {
	names := make([]string, 0, len(t.attrs))
	for k := range t.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
