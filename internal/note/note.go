// Package note holds a single note: its persisted data, tag membership, save
// lifecycle and, once opened, its rich text document.
package note

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/archiver"
	"github.com/starford/notecore/internal/events"
	"github.com/starford/notecore/internal/models"
	"github.com/starford/notecore/internal/richtext"
	"github.com/starford/notecore/internal/tags"
	"github.com/starford/notecore/internal/xmlenc"
)

// URIPrefix starts every note uri; the note id follows it.
const URIPrefix = "note://gnote/"

// ChangeType says which dates a save stamps.
type ChangeType int

const (
	// NoChange saves without touching any date.
	NoChange ChangeType = iota
	// ContentChanged stamps the change date and the metadata change date.
	ContentChanged
	// OtherDataChanged stamps only the metadata change date.
	OtherDataChanged
)

// Files is the file access a note needs.
type Files interface {
	archiver.Files
	ModTime(path string) (time.Time, error)
}

// Linker finds the notes that link to a title.
type Linker interface {
	NotesLinkingTo(title string) []*Note
}

// Env is what notes share with the store that owns them.
type Env struct {
	Files   Files
	Tags    *tags.Registry
	Catalog *richtext.Catalog
	Linker  Linker
	Bus     *events.Bus
	Logger  *slog.Logger
	// AutoBullets turns "* " list conversion on for opened documents.
	AutoBullets bool
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	// Note files keep seven fraction digits.
	return time.Now().Truncate(100 * time.Nanosecond)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Env) publish(ev events.Event) {
	if e.Bus != nil {
		e.Bus.Publish(ev)
	}
}

// Note is one note and its file. A Note is not safe for concurrent use.
type Note struct {
	env  *Env
	path string
	data *models.NoteData
	doc  *richtext.Document

	saveNeeded bool
	deleting   bool
	reloading  bool
}

// URIFromPath returns the uri of the note stored at path.
func URIFromPath(path string) string {
	return URIPrefix + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// New returns a note titled title that will be stored at path. It is not
// written until saved.
func New(env *Env, title, path string) *Note {
	data := models.NewNoteData(URIFromPath(path))
	data.Title = title
	now := env.now()
	data.CreateDate = now
	data.SetChangeDate(now)
	return &Note{env: env, path: path, data: data}
}

// Load reads the note stored at path. Missing dates are taken from the file's
// modification time and every tag of the note is registered.
func Load(env *Env, path string) (*Note, error) {
	data, err := archiver.ReadFile(env.Files, path, URIFromPath(path), env.Logger)
	if err != nil {
		return nil, fmt.Errorf("note: load: %w", err)
	}
	if data.CreateDate.IsZero() || data.ChangeDate().IsZero() {
		if mt, err := env.Files.ModTime(path); err == nil {
			if data.CreateDate.IsZero() {
				data.CreateDate = mt
			}
			if data.ChangeDate().IsZero() {
				data.SetChangeDate(mt)
			}
		}
	}

	n := &Note{env: env, path: path, data: data}
	names := data.TagNames()
	data.Tags = make(map[string]string, len(names))
	for _, name := range names {
		tag, err := env.Tags.GetOrCreateTag(name)
		if err != nil {
			continue
		}
		tag.AddNote(data.URI())
		data.Tags[tag.NormalizedName()] = tag.Name()
	}
	return n, nil
}

func (n *Note) URI() string { return n.data.URI() }

// ID returns the note guid, the last uri segment.
func (n *Note) ID() string { return strings.TrimPrefix(n.data.URI(), URIPrefix) }

// Path returns the note file path relative to the notes directory.
func (n *Note) Path() string { return n.path }

func (n *Note) Title() string { return n.data.Title }

func (n *Note) CreateDate() time.Time         { return n.data.CreateDate }
func (n *Note) ChangeDate() time.Time         { return n.data.ChangeDate() }
func (n *Note) MetadataChangeDate() time.Time { return n.data.MetadataChangeDate }

// IsNew reports whether the note was created within the last day.
func (n *Note) IsNew() bool {
	c := n.data.CreateDate
	return !c.IsZero() && c.After(n.env.now().Add(-24*time.Hour))
}

// IsDirty reports whether there are changes not yet written.
func (n *Note) IsDirty() bool { return n.saveNeeded }

// Data returns a copy of the note data with the open document folded in.
func (n *Note) Data() *models.NoteData {
	return n.synchronizedData().Clone()
}

func (n *Note) synchronizedData() *models.NoteData {
	if n.doc != nil {
		n.data.Text = richtext.Serialize(n.doc)
		start, end, _ := n.doc.SelectionBounds()
		n.data.CursorPosition = n.doc.Cursor()
		n.data.SelectionBoundPosition = n.doc.SelectionBound()
		if start == end {
			n.data.SelectionBoundPosition = models.NoPosition
		}
	}
	return n.data
}

// SetExtent records the last window size.
func (n *Note) SetExtent(width, height int) {
	n.data.SetExtent(width, height)
	n.QueueSave(NoChange)
}

// SetTitle retitles the note. From a user action, every other note linking
// to the old title gets its links rewritten first, once each.
func (n *Note) SetTitle(title string, fromUserAction bool) {
	if n.data.Title == title {
		return
	}
	old := n.data.Title
	n.data.Title = title

	if fromUserAction && n.env.Linker != nil {
		for _, other := range n.env.Linker.NotesLinkingTo(old) {
			if other == n {
				continue
			}
			other.RenameLinks(old, n)
		}
	}
	n.env.publish(events.Event{Kind: events.NoteRenamed, URI: n.URI(), Title: title, OldTitle: old})
	n.QueueSave(ContentChanged)
}

// RenameWithoutLinkUpdate retitles the note and leaves links in other notes alone.
func (n *Note) RenameWithoutLinkUpdate(title string) {
	n.SetTitle(title, false)
}

// QueueSave stamps the dates for c and writes the note.
func (n *Note) QueueSave(c ChangeType) {
	if n.deleting || n.reloading {
		return
	}
	n.setChangeType(c)
	n.saveNeeded = true
	_ = n.Save()
}

func (n *Note) setChangeType(c ChangeType) {
	switch c {
	case ContentChanged:
		n.data.SetChangeDate(n.env.now())
	case OtherDataChanged:
		n.data.MetadataChangeDate = n.env.now()
	}
}

// Save writes the note when it has unsaved changes. A failure is logged and
// leaves the note dirty for the next attempt.
func (n *Note) Save() error {
	if n.deleting || !n.saveNeeded {
		return nil
	}
	if err := archiver.WriteFile(n.env.Files, n.path, n.synchronizedData()); err != nil {
		n.env.logger().Error("note: save failed",
			slog.String("uri", n.URI()),
			slog.String("path", n.path),
			slog.String("error", err.Error()))
		return fmt.Errorf("note: save: %w", err)
	}
	n.saveNeeded = false
	n.env.publish(events.Event{Kind: events.NoteSaved, URI: n.URI(), Title: n.data.Title})
	return nil
}

// Delete detaches the note from every tag. Nothing is written afterwards.
func (n *Note) Delete() {
	n.deleting = true
	for _, name := range n.data.TagNames() {
		if tag, ok := n.env.Tags.GetTag(name); ok {
			n.RemoveTag(tag)
		} else {
			delete(n.data.Tags, tags.Normalize(name))
		}
	}
}

// IsDeleting reports whether Delete was called.
func (n *Note) IsDeleting() bool { return n.deleting }

// AddTag tags the note and the note with the tag.
func (n *Note) AddTag(tag *tags.Tag) error {
	if tag == nil {
		return fmt.Errorf("note: add tag: %w", apperr.ErrInvalidTag)
	}
	tag.AddNote(n.URI())
	if _, ok := n.data.Tags[tag.NormalizedName()]; ok {
		return nil
	}
	n.data.Tags[tag.NormalizedName()] = tag.Name()
	n.env.publish(events.Event{Kind: events.TagAdded, URI: n.URI(), Title: n.data.Title, Tag: tag.Name()})
	n.QueueSave(OtherDataChanged)
	return nil
}

// RemoveTag removes tag from the note; a tag the note lacks is ignored.
func (n *Note) RemoveTag(tag *tags.Tag) {
	if tag == nil {
		return
	}
	if _, ok := n.data.Tags[tag.NormalizedName()]; !ok {
		return
	}
	delete(n.data.Tags, tag.NormalizedName())
	tag.RemoveNote(n.URI())
	n.env.publish(events.Event{Kind: events.TagRemoved, URI: n.URI(), Title: n.data.Title, Tag: tag.Name()})
	n.QueueSave(OtherDataChanged)
}

// ContainsTag reports whether the note carries tag.
func (n *Note) ContainsTag(tag *tags.Tag) bool {
	if tag == nil {
		return false
	}
	_, ok := n.data.Tags[tag.NormalizedName()]
	return ok
}

// Tags returns the note's tags ordered by normalized name.
func (n *Note) Tags() []*tags.Tag {
	var out []*tags.Tag
	for _, name := range n.data.TagNames() {
		if tag, ok := n.env.Tags.GetTag(name); ok {
			out = append(out, tag)
		}
	}
	return out
}

// CompleteXML returns the whole note document as it would be written.
func (n *Note) CompleteXML() string {
	return archiver.WriteString(n.synchronizedData())
}

// XMLContent returns the <note-content> fragment.
func (n *Note) XMLContent() string {
	return n.synchronizedData().Text
}

// SetXMLContent replaces the note body. An open document is reloaded from it.
func (n *Note) SetXMLContent(xml string) error {
	if n.doc != nil {
		if err := n.loadDocument(xml); err != nil {
			return err
		}
	}
	n.data.Text = xml
	return nil
}

// TextContent returns the body without markup.
func (n *Note) TextContent() string {
	return xmlenc.Decode(n.XMLContent())
}

// LoadForeignNoteXML overwrites the note from a complete note document coming
// from outside, such as another process or an import. The document is parsed
// in full before anything changes.
func (n *Note) LoadForeignNoteXML(doc string, c ChangeType) error {
	if err := n.applyForeign(doc); err != nil {
		return fmt.Errorf("note: load foreign xml: %w", err)
	}
	n.QueueSave(c)
	return nil
}

// Reload rereads the note file after another process changed it. The file
// is not written back.
func (n *Note) Reload() error {
	raw, err := n.env.Files.Read(n.path)
	if err != nil {
		return fmt.Errorf("note: reload: %w", err)
	}
	n.reloading = true
	err = n.applyForeign(string(raw))
	n.reloading = false
	if err != nil {
		return fmt.Errorf("note: reload: %w", err)
	}
	n.saveNeeded = false
	n.env.publish(events.Event{Kind: events.NoteSaved, URI: n.URI(), Title: n.data.Title})
	return nil
}

func (n *Note) applyForeign(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return fmt.Errorf("%w: empty document", apperr.ErrInvalidXML)
	}
	foreign, _, err := archiver.ReadString(doc, n.URI())
	if err != nil {
		return err
	}

	if foreign.Title != "" {
		n.SetTitle(foreign.Title, false)
	}
	if foreign.Text != "" {
		if err := n.SetXMLContent(foreign.Text); err != nil {
			if !errors.Is(err, apperr.ErrInvalidXML) {
				return err
			}
			n.env.logger().Warn("note: foreign content does not parse, kept as text",
				slog.String("uri", n.URI()),
				slog.String("error", err.Error()))
			n.data.Text = foreign.Text
		}
	}
	if !foreign.ChangeDate().IsZero() {
		n.data.SetChangeDate(foreign.ChangeDate())
	}
	if !foreign.MetadataChangeDate.IsZero() {
		n.data.MetadataChangeDate = foreign.MetadataChangeDate
	}
	if !foreign.CreateDate.IsZero() {
		n.data.CreateDate = foreign.CreateDate
	}

	var incoming []*tags.Tag
	for _, name := range foreign.TagNames() {
		tag, err := n.env.Tags.GetOrCreateTag(name)
		if err != nil {
			continue
		}
		incoming = append(incoming, tag)
	}
	for _, tag := range n.Tags() {
		if !containsTag(incoming, tag) {
			n.RemoveTag(tag)
		}
	}
	for _, tag := range incoming {
		if err := n.AddTag(tag); err != nil {
			return err
		}
	}
	return nil
}

func containsTag(list []*tags.Tag, t *tags.Tag) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}
