package richtext

import "sort"

// Names of the tags every catalog starts with.
const (
	TagCentered      = "centered"
	TagBold          = "bold"
	TagItalic        = "italic"
	TagStrikethrough = "strikethrough"
	TagHighlight     = "highlight"
	TagMonospace     = "monospace"
	TagFindMatch     = "find-match"
	TagNoteTitle     = "note-title"
	TagRelatedTo     = "related-to"
	TagDatetime      = "datetime"
	TagSizeHuge      = "size:huge"
	TagSizeLarge     = "size:large"
	TagSizeNormal    = "size:normal"
	TagSizeSmall     = "size:small"
	TagLinkBroken    = "link:broken"
	TagLinkInternal  = "link:internal"
	TagLinkURL       = "link:url"
)

// Catalog is the table of tags a Document can use.
type Catalog struct {
	tags    map[string]*Tag
	dynamic map[string]Flags
	next    int
}

// NewCatalog returns a catalog holding the common formatting, size and link tags.
func NewCatalog() *Catalog {
	c := &Catalog{
		tags:    make(map[string]*Tag),
		dynamic: make(map[string]Flags),
	}
	format := CanUndo | CanGrow | CanSpellCheck
	for _, name := range []string{
		TagCentered, TagBold, TagItalic, TagStrikethrough, TagHighlight, TagMonospace,
		TagSizeHuge, TagSizeLarge, TagSizeNormal, TagSizeSmall,
	} {
		c.Add(NewTag(name, format))
	}

	findMatch := NewTag(TagFindMatch, CanSpellCheck)
	findMatch.SetFlag(CanSerialize, false)
	c.Add(findMatch)

	title := NewTag(TagNoteTitle, 0)
	title.SetFlag(CanSerialize, false)
	c.Add(title)

	c.Add(NewTag(TagRelatedTo, 0))
	c.Add(NewTag(TagDatetime, 0))

	for _, name := range []string{TagLinkBroken, TagLinkInternal, TagLinkURL} {
		c.Add(NewTag(name, CanActivate))
	}
	return c
}

// Add registers t under its name, replacing any previous tag with that name.
func (c *Catalog) Add(t *Tag) {
	c.next++
	t.priority = c.next
	c.tags[t.name] = t
}

// Lookup returns the tag registered under name.
func (c *Catalog) Lookup(name string) (*Tag, bool) {
	t, ok := c.tags[name]
	return t, ok
}

// DepthTag returns the shared tag for a bullet depth and direction.
func (c *Catalog) DepthTag(depth int, dir Direction) *Tag {
	if dir != DirectionRTL {
		dir = DirectionLTR
	}
	name := depthTagName(depth, dir)
	if t, ok := c.tags[name]; ok {
		return t
	}
	t := newDepthTag(depth, dir)
	c.Add(t)
	return t
}

// RegisterDynamicTag declares an element whose occurrences become dynamic tags.
func (c *Catalog) RegisterDynamicTag(element string, flags Flags) {
	c.dynamic[element] = flags
}

// IsDynamicTagRegistered reports whether element was registered as dynamic.
func (c *Catalog) IsDynamicTagRegistered(element string) bool {
	_, ok := c.dynamic[element]
	return ok
}

// CreateDynamicTag returns a fresh tag instance for a registered dynamic element.
func (c *Catalog) CreateDynamicTag(element string) (*Tag, bool) {
	flags, ok := c.dynamic[element]
	if !ok {
		return nil, false
	}
	t := NewTag(element, flags)
	t.dynamic = true
	c.next++
	t.priority = c.next
	return t, true
}

// Tags returns the registered tags ordered by name.
func (c *Catalog) Tags() []*Tag {
	out := make([]*Tag, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
