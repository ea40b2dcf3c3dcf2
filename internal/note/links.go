package note

import (
	"slices"
	"strings"

	"github.com/starford/notecore/internal/archiver"
	"github.com/starford/notecore/internal/richtext"
	"github.com/starford/notecore/internal/xmlenc"
)

// LinkMarker is the markup of an internal link to title, as it appears in
// serialized note content.
func LinkMarker(title string) string {
	return "<" + richtext.TagLinkInternal + ">" + xmlenc.Encode(title) + "</" + richtext.TagLinkInternal + ">"
}

// RenameLinks points this note's internal links to oldTitle at renamed's
// current title, then saves.
func (n *Note) RenameLinks(oldTitle string, renamed *Note) {
	n.handleLinkRename(oldTitle, renamed, true)
}

// RemoveLinks turns this note's internal links to oldTitle into broken links.
func (n *Note) RemoveLinks(oldTitle string, renamed *Note) {
	n.handleLinkRename(oldTitle, renamed, false)
}

func (n *Note) handleLinkRename(oldTitle string, renamed *Note, rename bool) {
	if oldTitle == "" || renamed == nil {
		return
	}
	newTitle := renamed.Title()
	changed := false

	if n.doc != nil {
		changed = n.relinkDocument(oldTitle, newTitle, rename)
	} else {
		text := n.data.Text
		marker := LinkMarker(oldTitle)
		if rename {
			text = strings.ReplaceAll(text, marker, LinkMarker(newTitle))
		} else {
			broken := "<" + richtext.TagLinkBroken + ">" + xmlenc.Encode(oldTitle) + "</" + richtext.TagLinkBroken + ">"
			text = strings.ReplaceAll(text, marker, broken)
		}
		changed = text != n.data.Text
		n.data.Text = text
	}
	if changed {
		n.QueueSave(ContentChanged)
	}
}

// relinkDocument rewrites link ranges whose text is oldTitle, last first so
// earlier offsets stay valid.
func (n *Note) relinkDocument(oldTitle, newTitle string, rename bool) bool {
	catalog := n.doc.Catalog()
	link, ok := catalog.Lookup(richtext.TagLinkInternal)
	if !ok {
		return false
	}
	broken, _ := catalog.Lookup(richtext.TagLinkBroken)

	ranges := n.doc.TagRanges(link)
	slices.Reverse(ranges)
	changed := false
	for _, r := range ranges {
		if n.doc.Slice(r.Start, r.End) != oldTitle {
			continue
		}
		changed = true
		if rename {
			n.doc.Delete(r.Start, r.End)
			n.doc.InsertWithTags(r.Start, newTitle, link)
			continue
		}
		n.doc.RemoveTag(link, r.Start, r.End)
		n.doc.ApplyTag(broken, r.Start, r.End)
	}
	return changed
}

// retitleContent replaces oldTitle with newTitle on the first line of the body.
func (n *Note) retitleContent(oldTitle, newTitle string) {
	if n.doc != nil {
		end := n.doc.LineStart(1)
		if n.doc.LineCount() > 1 {
			end--
		}
		if n.doc.Slice(0, end) != oldTitle {
			return
		}
		title, _ := n.doc.Catalog().Lookup(richtext.TagNoteTitle)
		n.doc.Delete(0, end)
		n.doc.InsertWithTags(0, newTitle, title)
		return
	}
	n.data.Text = archiver.RenamedNoteXML(n.data.Text, oldTitle, newTitle)
}

// Retitle renames the note from a user action and keeps the first line of
// the body in step with the new title.
func (n *Note) Retitle(title string) {
	old := n.data.Title
	if old == title {
		return
	}
	n.retitleContent(old, title)
	n.SetTitle(title, true)
}
