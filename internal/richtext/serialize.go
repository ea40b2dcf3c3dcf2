package richtext

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/xmlenc"
)

// ContentVersion is written on the <note-content> element.
const ContentVersion = "0.1"

// Serialize renders the whole document as a <note-content> element.
func Serialize(d *Document) string {
	return SerializeRange(d, 0, d.Len())
}

// SerializeRange renders the text between start and end as a <note-content>
// element. Bullets become nested <list>/<list-item> elements and tags that
// cannot be serialized are dropped.
func SerializeRange(d *Document, start, end int) string {
	start, end = d.clamp(start), d.clamp(end)
	w := &serializer{d: d, depth: -1}
	w.b.WriteString(`<note-content version="` + ContentVersion + `">`)

	for p := start; p < end; {
		if p == d.lineStartOf(p) {
			if bullet := d.FindDepthTag(p); bullet != nil || w.depth >= 0 {
				w.closeInline(0)
				w.setDepth(bullet)
				if bullet != nil {
					r, _ := d.TagExtent(p, bullet)
					p = min(r.End, p+2, end)
					continue
				}
			}
		}
		w.syncInline(p)
		w.b.WriteString(xmlenc.Encode(string(d.text[p])))
		p++
	}
	w.closeInline(0)
	w.setDepth(nil)
	w.b.WriteString("</note-content>")
	return w.b.String()
}

type serializer struct {
	d     *Document
	b     strings.Builder
	open  []*Tag
	depth int
}

// setDepth closes and opens list elements so the current item is at the depth
// of bullet, or outside any list for nil.
func (w *serializer) setDepth(bullet *Tag) {
	target := -1
	if bullet != nil {
		target = bullet.Depth()
	}
	switch {
	case target > w.depth:
		for k := w.depth + 1; k <= target; k++ {
			w.b.WriteString("<list>")
			if k < target {
				w.openItem(bullet.Direction())
			}
		}
	case target == w.depth:
		if target < 0 {
			return
		}
		w.b.WriteString("</list-item>")
	default:
		for ; w.depth > target; w.depth-- {
			w.b.WriteString("</list-item></list>")
		}
		if target >= 0 {
			w.b.WriteString("</list-item>")
		}
	}
	if target >= 0 {
		w.openItem(bullet.Direction())
	}
	w.depth = target
}

func (w *serializer) openItem(dir Direction) {
	w.b.WriteString(`<list-item dir="` + dir.String() + `">`)
}

// syncInline makes the open inline elements match the tags at p.
func (w *serializer) syncInline(p int) {
	want := w.inlineTags(p)
	i := 0
	for i < len(w.open) && i < len(want) && w.open[i] == want[i] {
		i++
	}
	w.closeInline(i)
	for _, t := range want[i:] {
		w.b.WriteString("<" + t.element)
		for _, name := range t.attributeNames() {
			w.b.WriteString(" " + name + `="` + xmlenc.EncodeAttr(t.attrs[name]) + `"`)
		}
		w.b.WriteString(">")
		w.open = append(w.open, t)
	}
}

func (w *serializer) closeInline(from int) {
	for i := len(w.open) - 1; i >= from; i-- {
		w.b.WriteString("</" + w.open[i].element + ">")
	}
	w.open = w.open[:from]
}

// inlineTags returns the serializable tags at p, outermost first: a tag whose
// range starts earlier, or ends later, encloses the others. Tags with the same
// range nest in catalog order.
func (w *serializer) inlineTags(p int) []*Tag {
	type covered struct {
		t *Tag
		r Range
		i int
	}
	var cs []covered
	for i, t := range w.d.TagsAt(p) {
		if t.IsDepth() || !t.CanSerialize() {
			continue
		}
		r, _ := w.d.TagExtent(p, t)
		cs = append(cs, covered{t, r, i})
	}
	slices.SortStableFunc(cs, func(a, b covered) int {
		if a.r.Start != b.r.Start {
			return a.r.Start - b.r.Start
		}
		if a.r.End != b.r.End {
			return b.r.End - a.r.End
		}
		if a.t.priority != b.t.priority {
			return a.t.priority - b.t.priority
		}
		return a.i - b.i
	})
	out := make([]*Tag, len(cs))
	for i, c := range cs {
		out[i] = c.t
	}
	return out
}

// Deserialize inserts the text and tags of a <note-content> fragment at pos.
// Unknown elements become tags of their own name so they survive a rewrite.
func Deserialize(d *Document, pos int, fragment string) error {
	if err := Validate(fragment); err != nil {
		return err
	}

	type element struct {
		tag   *Tag
		start int
		item  bool
	}
	type bullet struct {
		depth int
		dir   Direction
	}

	dec := xml.NewDecoder(strings.NewReader(fragment))
	dec.Strict = false
	cur := d.clamp(pos)
	depth := -1
	var stack []element
	var pending *bullet

	placeBullet := func() {
		if pending == nil {
			return
		}
		if cur == d.lineStartOf(cur) {
			d.InsertBullet(cur, pending.depth, pending.dir)
			cur += 2
		}
		pending = nil
	}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("richtext: deserialize: %w: %v", apperr.ErrInvalidXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := qualifiedName(t.Name)
			switch name {
			case "note-content":
			case "list":
				depth++
			case "list-item":
				dir := DirectionLTR
				for _, a := range t.Attr {
					if a.Name.Local == "dir" {
						dir = parseDirection(a.Value)
					}
				}
				pending = &bullet{depth: max(depth, 0), dir: dir}
				stack = append(stack, element{item: true})
			default:
				tag := d.tagForElement(name, t.Attr)
				d.rememberTag(tag)
				stack = append(stack, element{tag: tag, start: cur})
			}
		case xml.EndElement:
			name := qualifiedName(t.Name)
			switch name {
			case "note-content":
				continue
			case "list":
				depth--
				continue
			}
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.item {
				placeBullet()
				continue
			}
			d.ApplyTag(top.tag, top.start, cur)
		case xml.CharData:
			runes := []rune(string(t))
			if len(runes) == 0 {
				continue
			}
			placeBullet()
			d.insert(cur, runes, false)
			cur += len(runes)
		}
	}
}

// tagForElement resolves an element name to a catalog tag, a fresh dynamic
// tag, or a new tag registered under that name.
func (d *Document) tagForElement(name string, attrs []xml.Attr) *Tag {
	if t, ok := d.catalog.CreateDynamicTag(name); ok {
		for _, a := range attrs {
			t.SetAttribute(qualifiedName(a.Name), a.Value)
		}
		return t
	}
	if t, ok := d.catalog.Lookup(name); ok {
		return t
	}
	t := NewTag(name, 0)
	d.catalog.Add(t)
	return t
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Validate checks that a <note-content> fragment is well formed.
func Validate(fragment string) error {
	dec := xml.NewDecoder(strings.NewReader(fragment))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("richtext: deserialize: %w: %v", apperr.ErrInvalidXML, err)
		}
	}
}
