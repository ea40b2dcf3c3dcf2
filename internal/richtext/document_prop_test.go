package richtext

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// checkRanges fails when any tag range is empty, out of bounds, unsorted or
// overlapping another range of the same tag.
func checkRanges(t *rapid.T, d *Document) {
	for tag, rs := range d.ranges {
		prevEnd := -1
		for _, r := range rs {
			if r.Start >= r.End || r.Start < 0 || r.End > d.Len() {
				t.Fatalf("%s: bad range %v in text of %d", tag.Name(), r, d.Len())
			}
			if r.Start <= prevEnd {
				t.Fatalf("%s: ranges %v not disjoint", tag.Name(), rs)
			}
			prevEnd = r.End
		}
	}
	if d.cursor < 0 || d.cursor > d.Len() || d.bound < 0 || d.bound > d.Len() {
		t.Fatalf("marks %d/%d outside text of %d", d.cursor, d.bound, d.Len())
	}
}

func TestEdits_KeepRangesWellFormed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := NewDocument(nil)
		names := []string{TagBold, TagItalic, TagHighlight, TagLinkInternal}
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			n := d.Len()
			switch rapid.IntRange(0, 5).Draw(rt, "op") {
			case 0:
				d.Insert(rapid.IntRange(0, n).Draw(rt, "pos"), rapid.StringMatching(`[a-z \n*]{1,6}`).Draw(rt, "text"))
			case 1:
				a, b := rapid.IntRange(0, n).Draw(rt, "a"), rapid.IntRange(0, n).Draw(rt, "b")
				d.Delete(min(a, b), max(a, b))
			case 2:
				tag, _ := d.Catalog().Lookup(rapid.SampledFrom(names).Draw(rt, "tag"))
				a, b := rapid.IntRange(0, n).Draw(rt, "a"), rapid.IntRange(0, n).Draw(rt, "b")
				if rapid.Bool().Draw(rt, "apply") {
					d.ApplyTag(tag, min(a, b), max(a, b))
				} else {
					d.RemoveTag(tag, min(a, b), max(a, b))
				}
			case 3:
				d.PlaceCursor(rapid.IntRange(0, n).Draw(rt, "cursor"))
				d.KeyEnter(rapid.Bool().Draw(rt, "soft"))
			case 4:
				d.PlaceCursor(rapid.IntRange(0, n).Draw(rt, "cursor"))
				if rapid.Bool().Draw(rt, "backspace") {
					d.KeyBackspace()
				} else {
					d.KeyDelete()
				}
			case 5:
				d.PlaceCursor(rapid.IntRange(0, n).Draw(rt, "cursor"))
				d.KeyTab()
			}
			checkRanges(rt, d)
		}

		// Whatever the edits did, the markup must stay well formed.
		if err := Deserialize(NewDocument(nil), 0, Serialize(d)); err != nil {
			rt.Fatalf("Deserialize(Serialize(%q)): %v", d.Text(), err)
		}
	})
}

// drawMarkup builds nested inline markup with non-empty text in every element.
func drawMarkup(t *rapid.T, depth int) string {
	names := []string{TagBold, TagItalic, TagStrikethrough, TagHighlight, TagMonospace, TagSizeLarge}
	var b strings.Builder
	parts := rapid.IntRange(1, 3).Draw(t, "parts")
	for i := 0; i < parts; i++ {
		if depth > 0 && rapid.Bool().Draw(t, "element") {
			name := rapid.SampledFrom(names).Draw(t, "name")
			b.WriteString("<" + name + ">" + drawMarkup(t, depth-1) + "</" + name + ">")
			continue
		}
		b.WriteString(rapid.StringMatching(`[a-z ]{1,5}`).Draw(t, "text"))
	}
	return b.String()
}

func TestSerialize_StableAcrossReload(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		content := `<note-content version="0.1">` + drawMarkup(rt, 3) + `</note-content>`

		first := NewDocument(nil)
		if err := Deserialize(first, 0, content); err != nil {
			rt.Fatalf("Deserialize(%s): %v", content, err)
		}
		once := Serialize(first)

		second := NewDocument(nil)
		if err := Deserialize(second, 0, once); err != nil {
			rt.Fatalf("Deserialize(%s): %v", once, err)
		}
		if twice := Serialize(second); twice != once {
			rt.Fatalf("reload changed markup\n%s\n%s", once, twice)
		}
		if first.Text() != second.Text() {
			rt.Fatalf("text %q became %q", first.Text(), second.Text())
		}
		for pos := 0; pos < second.Len(); pos++ {
			seen := map[*Tag]bool{}
			for _, tag := range second.TagsAt(pos) {
				if seen[tag] {
					rt.Fatalf("%s listed twice at %d", tag.Name(), pos)
				}
				seen[tag] = true
			}
		}
	})
}
