package richtext

import (
	"slices"

	"golang.org/x/text/unicode/bidi"
)

// Range is a half-open span of rune offsets.
type Range struct {
	Start int
	End   int
}

// Document is an editable text annotated with tag ranges. Offsets are rune
// offsets. Lines are separated by '\n'; U+2028 breaks a line visually only.
//
// A Document is not safe for concurrent use.
type Document struct {
	catalog *Catalog
	text    []rune
	ranges  map[*Tag][]Range
	order   []*Tag

	cursor int
	bound  int
	active []*Tag

	autoBullets bool

	changed        []func()
	bulletInserted []func(offset, depth int, dir Direction)
	depthChanged   []func(line int, increase bool)
}

// NewDocument returns an empty document using catalog for tag lookups.
func NewDocument(catalog *Catalog) *Document {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Document{
		catalog:     catalog,
		ranges:      make(map[*Tag][]Range),
		autoBullets: true,
	}
}

// Catalog returns the tag table of the document.
func (d *Document) Catalog() *Catalog { return d.catalog }

// SetAutoBulletedLists turns "* " and "- " line conversion on or off.
func (d *Document) SetAutoBulletedLists(on bool) { d.autoBullets = on }

// OnChanged registers fn to run after every text change and every change of a
// serializable tag.
func (d *Document) OnChanged(fn func()) { d.changed = append(d.changed, fn) }

// OnNewBulletInserted registers fn to run when Enter continues a bulleted list.
func (d *Document) OnNewBulletInserted(fn func(offset, depth int, dir Direction)) {
	d.bulletInserted = append(d.bulletInserted, fn)
}

// OnChangeTextDepth registers fn to run when a line's bullet depth changes.
func (d *Document) OnChangeTextDepth(fn func(line int, increase bool)) {
	d.depthChanged = append(d.depthChanged, fn)
}

func (d *Document) emitChanged() {
	for _, fn := range d.changed {
		fn()
	}
}

// Text returns the whole document text.
func (d *Document) Text() string { return string(d.text) }

// Len returns the number of runes.
func (d *Document) Len() int { return len(d.text) }

// Slice returns the text between start and end.
func (d *Document) Slice(start, end int) string {
	start, end = d.clamp(start), d.clamp(end)
	if start >= end {
		return ""
	}
	return string(d.text[start:end])
}

// CharAt returns the rune at pos, or 0 outside the text.
func (d *Document) CharAt(pos int) rune {
	if pos < 0 || pos >= len(d.text) {
		return 0
	}
	return d.text[pos]
}

func (d *Document) clamp(pos int) int {
	return max(0, min(pos, len(d.text)))
}

// Insert inserts s at pos. A single inserted rune takes exactly the active
// tags, as typed text does.
func (d *Document) Insert(pos int, s string) {
	d.insert(pos, []rune(s), true)
}

// InsertWithTags inserts s at pos and applies tags to it.
func (d *Document) InsertWithTags(pos int, s string, tags ...*Tag) {
	runes := []rune(s)
	pos = d.clamp(pos)
	d.insert(pos, runes, true)
	for _, t := range tags {
		d.ApplyTag(t, pos, pos+len(runes))
	}
}

// InsertAtCursor replaces the selection, if any, with s.
func (d *Document) InsertAtCursor(s string) {
	if start, end, ok := d.SelectionBounds(); ok {
		d.Delete(start, end)
	}
	d.Insert(d.cursor, s)
}

func (d *Document) insert(pos int, runes []rune, events bool) {
	n := len(runes)
	if n == 0 {
		return
	}
	pos = d.clamp(pos)
	d.text = slices.Insert(d.text, pos, runes...)

	for t, rs := range d.ranges {
		for i := range rs {
			switch {
			case rs[i].Start >= pos:
				rs[i].Start += n
				rs[i].End += n
			case rs[i].End > pos:
				rs[i].End += n
			}
		}
		d.ranges[t] = rs
	}
	if d.cursor >= pos {
		d.cursor += n
	}
	if d.bound >= pos {
		d.bound += n
	}

	if events {
		d.textInserted(pos, runes)
	}
	d.emitChanged()
}

// textInserted gives typed characters the active tags and keeps the bullet
// direction in line with the first character of the item.
func (d *Document) textInserted(pos int, runes []rune) {
	end := pos + len(runes)
	if len(runes) == 1 {
		for _, t := range d.TagsAt(pos) {
			d.subtractRange(t, pos, end)
		}
		for _, t := range d.active {
			d.ApplyTag(t, pos, end)
		}
	}
	ls := d.lineStartOf(pos)
	if pos-ls == 2 && d.FindDepthTag(ls) != nil {
		d.ChangeBulletDirection(pos, charDirection(runes[0]))
	}
}

// Delete removes the text between start and end.
func (d *Document) Delete(start, end int) {
	start, end = d.clamp(start), d.clamp(end)
	if start >= end {
		return
	}
	n := end - start
	d.text = slices.Delete(d.text, start, end)

	shift := func(x int) int {
		switch {
		case x <= start:
			return x
		case x >= end:
			return x - n
		default:
			return start
		}
	}
	for t, rs := range d.ranges {
		out := rs[:0]
		for _, r := range rs {
			r.Start, r.End = shift(r.Start), shift(r.End)
			if r.Start < r.End {
				out = append(out, r)
			}
		}
		d.setRanges(t, out)
	}
	d.cursor = shift(d.cursor)
	d.bound = shift(d.bound)

	d.rangeDeleted(start)
	d.emitChanged()
}

// rangeDeleted re-derives the bullet direction when the first character of a
// bulleted line was removed.
func (d *Document) rangeDeleted(pos int) {
	ls := d.lineStartOf(pos)
	if off := pos - ls; (off == 2 || off == 3) && d.FindDepthTag(ls) != nil {
		first := ls + 2
		dir := DirectionLTR
		if c := d.CharAt(first); c != 0 {
			dir = charDirection(c)
		}
		d.ChangeBulletDirection(first, dir)
	}
}

// Clear removes all text and tags.
func (d *Document) Clear() {
	d.Delete(0, len(d.text))
}

// ApplyTag tags the text between start and end. A depth tag replaces any other
// depth tag and strips formatting over its range; other tags never cover bullets.
func (d *Document) ApplyTag(t *Tag, start, end int) {
	start, end = d.clamp(start), d.clamp(end)
	if t == nil || start >= end {
		return
	}
	if t.IsDepth() {
		for _, other := range d.tagsOverlapping(start, end) {
			if other != t {
				d.subtractRange(other, start, end)
			}
		}
	}
	d.addRange(t, start, end)

	if !t.IsDepth() {
		last := d.LineOf(end)
		for line := d.LineOf(start); line <= last; line++ {
			ls := d.LineStart(line)
			if d.FindDepthTag(ls) != nil {
				d.subtractRange(t, ls, ls+2)
			}
		}
	}
	if t.CanSerialize() {
		d.emitChanged()
	}
}

// RemoveTag removes t from the text between start and end.
func (d *Document) RemoveTag(t *Tag, start, end int) {
	start, end = d.clamp(start), d.clamp(end)
	if t == nil || start >= end {
		return
	}
	d.subtractRange(t, start, end)
	if t.CanSerialize() {
		d.emitChanged()
	}
}

// RemoveAllTags strips every tag from the text between start and end.
func (d *Document) RemoveAllTags(start, end int) {
	for _, t := range d.tagsOverlapping(start, end) {
		d.RemoveTag(t, start, end)
	}
}

func (d *Document) addRange(t *Tag, start, end int) {
	rs, ok := d.ranges[t]
	if !ok {
		d.rememberTag(t)
	}
	rs = append(rs, Range{start, end})
	slices.SortFunc(rs, func(a, b Range) int { return a.Start - b.Start })
	merged := rs[:1]
	for _, r := range rs[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	d.ranges[t] = merged
}

func (d *Document) subtractRange(t *Tag, start, end int) {
	rs, ok := d.ranges[t]
	if !ok {
		return
	}
	var out []Range
	for _, r := range rs {
		if r.End <= start || r.Start >= end {
			out = append(out, r)
			continue
		}
		if r.Start < start {
			out = append(out, Range{r.Start, start})
		}
		if r.End > end {
			out = append(out, Range{end, r.End})
		}
	}
	d.setRanges(t, out)
}

// setRanges stores rs for t, merging ranges that became adjacent and
// forgetting t when nothing is left.
func (d *Document) setRanges(t *Tag, rs []Range) {
	if len(rs) == 0 {
		delete(d.ranges, t)
		d.order = slices.DeleteFunc(d.order, func(o *Tag) bool { return o == t })
		return
	}
	merged := []Range{rs[0]}
	for _, r := range rs[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	d.ranges[t] = merged
}

// rememberTag fixes t's position in the tag order. It is the only writer
// that appends to the order.
func (d *Document) rememberTag(t *Tag) {
	if slices.Contains(d.order, t) {
		return
	}
	d.order = append(d.order, t)
}

func (d *Document) tagsOverlapping(start, end int) []*Tag {
	var out []*Tag
	for _, t := range d.order {
		for _, r := range d.ranges[t] {
			if r.Start < end && r.End > start {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// TagsAt returns the tags covering the character at pos.
func (d *Document) TagsAt(pos int) []*Tag {
	var out []*Tag
	for _, t := range d.order {
		if d.HasTag(pos, t) {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether t covers the character at pos.
func (d *Document) HasTag(pos int, t *Tag) bool {
	_, ok := d.TagExtent(pos, t)
	return ok
}

// TagExtent returns the range of t that covers the character at pos.
func (d *Document) TagExtent(pos int, t *Tag) (Range, bool) {
	for _, r := range d.ranges[t] {
		if r.Start <= pos && pos < r.End {
			return r, true
		}
	}
	return Range{}, false
}

// BeginsTag reports whether a range of t starts at pos.
func (d *Document) BeginsTag(pos int, t *Tag) bool {
	for _, r := range d.ranges[t] {
		if r.Start == pos {
			return true
		}
	}
	return false
}

// EndsTag reports whether a range of t ends at pos.
func (d *Document) EndsTag(pos int, t *Tag) bool {
	for _, r := range d.ranges[t] {
		if r.End == pos {
			return true
		}
	}
	return false
}

// TagRanges returns the ranges covered by t.
func (d *Document) TagRanges(t *Tag) []Range {
	return slices.Clone(d.ranges[t])
}

// FindDepthTag returns the depth tag covering pos, or nil.
func (d *Document) FindDepthTag(pos int) *Tag {
	for _, t := range d.TagsAt(pos) {
		if t.IsDepth() {
			return t
		}
	}
	return nil
}

// GetDynamicTag returns the dynamic tag with the given element name at pos.
func (d *Document) GetDynamicTag(element string, pos int) *Tag {
	for _, t := range d.TagsAt(pos) {
		if t.dynamic && t.element == element {
			return t
		}
	}
	return nil
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	n := 1
	for _, r := range d.text {
		if r == '\n' {
			n++
		}
	}
	return n
}

// LineOf returns the zero-based line of pos.
func (d *Document) LineOf(pos int) int {
	pos = d.clamp(pos)
	n := 0
	for _, r := range d.text[:pos] {
		if r == '\n' {
			n++
		}
	}
	return n
}

// LineStart returns the offset of the first character of line, or the end of
// the text when line does not exist.
func (d *Document) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	n := 0
	for i, r := range d.text {
		if r == '\n' {
			n++
			if n == line {
				return i + 1
			}
		}
	}
	return len(d.text)
}

// LineOffset returns the offset of pos within its line.
func (d *Document) LineOffset(pos int) int {
	pos = d.clamp(pos)
	return pos - d.lineStartOf(pos)
}

func (d *Document) lineStartOf(pos int) int {
	pos = d.clamp(pos)
	for pos > 0 && d.text[pos-1] != '\n' {
		pos--
	}
	return pos
}

// lineEnd returns the offset of the newline ending pos's line, or the text end.
func (d *Document) lineEnd(pos int) int {
	pos = d.clamp(pos)
	for pos < len(d.text) && d.text[pos] != '\n' {
		pos++
	}
	return pos
}

func (d *Document) endsLine(pos int) bool {
	return pos >= len(d.text) || d.text[pos] == '\n'
}

// Cursor returns the insert position.
func (d *Document) Cursor() int { return d.cursor }

// SelectionBound returns the other end of the selection.
func (d *Document) SelectionBound() int { return d.bound }

// PlaceCursor moves the cursor to pos and clears the selection.
func (d *Document) PlaceCursor(pos int) {
	d.SelectRange(pos, pos)
}

// SelectRange sets the cursor and the selection bound.
func (d *Document) SelectRange(insert, bound int) {
	d.cursor = d.clamp(insert)
	d.bound = d.clamp(bound)
	d.cursorMoved()
}

// SelectionBounds returns the ordered selection, and whether it is non-empty.
// Without a selection both offsets equal the cursor.
func (d *Document) SelectionBounds() (start, end int, ok bool) {
	start, end = min(d.cursor, d.bound), max(d.cursor, d.bound)
	return start, end, start != end
}

// Selection returns the selected text.
func (d *Document) Selection() string {
	start, end, ok := d.SelectionBounds()
	if !ok {
		return ""
	}
	return string(d.text[start:end])
}

// BlockExtents widens start and end towards their line boundaries by at most
// threshold characters, then out of any avoid range they land in.
func (d *Document) BlockExtents(start, end, threshold int, avoid *Tag) (int, int) {
	start, end = d.clamp(start), d.clamp(end)
	ls := d.lineStartOf(start)
	start = ls + max(0, start-ls-threshold)

	els := d.lineStartOf(end)
	le := d.lineEnd(end)
	chars := le - els
	if le < len(d.text) {
		chars++
	}
	if chars-(end-els) > threshold+1 {
		end += threshold
	} else {
		end = le
	}

	if avoid != nil {
		if r, ok := d.TagExtent(start, avoid); ok {
			start = r.Start
		}
		if r, ok := d.TagExtent(end, avoid); ok {
			end = r.End
		}
	}
	return start, end
}

// charDirection maps a rune's bidi class to a writing direction.
func charDirection(r rune) Direction {
	p, _ := bidi.LookupRune(r)
	switch p.Class() {
	case bidi.L:
		return DirectionLTR
	case bidi.R, bidi.AL:
		return DirectionRTL
	default:
		return DirectionNeutral
	}
}
