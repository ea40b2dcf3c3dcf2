package note

import (
	"fmt"
	"log/slog"

	"github.com/starford/notecore/internal/richtext"
)

// Buffer opens the note body as an editable document. Edits mark the note
// dirty and stamp its change date; they are written by the next Save.
func (n *Note) Buffer() *richtext.Document {
	if n.doc != nil {
		return n.doc
	}
	doc := richtext.NewDocument(n.env.Catalog)
	doc.SetAutoBulletedLists(n.env.AutoBullets)
	if err := richtext.Deserialize(doc, 0, n.data.Text); err != nil {
		n.env.logger().Warn("note: body does not parse, opening as plain text",
			slog.String("uri", n.URI()),
			slog.String("error", err.Error()))
		doc.Clear()
		doc.Insert(0, n.TextContent())
	}
	n.placeCursor(doc)
	doc.OnChanged(n.bufferChanged)
	n.doc = doc
	return doc
}

// HasBuffer reports whether the body is open as a document.
func (n *Note) HasBuffer() bool { return n.doc != nil }

// placeCursor restores the saved cursor, or puts it at the start of the line
// after the title.
func (n *Note) placeCursor(doc *richtext.Document) {
	pos := n.data.CursorPosition
	if pos <= 0 {
		doc.PlaceCursor(doc.LineStart(1))
		return
	}
	bound := n.data.SelectionBoundPosition
	if bound < 0 {
		bound = pos
	}
	doc.SelectRange(pos, bound)
}

func (n *Note) bufferChanged() {
	if n.deleting {
		return
	}
	n.setChangeType(ContentChanged)
	n.saveNeeded = true
}

// loadDocument replaces the open document's content with xml.
func (n *Note) loadDocument(xml string) error {
	if err := richtext.Validate(xml); err != nil {
		return fmt.Errorf("note: set xml content: %w", err)
	}
	n.doc.Clear()
	if err := richtext.Deserialize(n.doc, 0, xml); err != nil {
		return fmt.Errorf("note: set xml content: %w", err)
	}
	return nil
}
