// Package models defines the domain types shared by the note packages.
package models

import (
	"sort"
	"time"
)

// NoPosition marks an unset cursor or selection offset.
const NoPosition = -1

// DateLayout is the Tomboy timestamp format (seven fractional digits, numeric offset).
const DateLayout = "2006-01-02T15:04:05.0000000-07:00"

// NoteData is the persistent state of one note, as stored in a .note file.
type NoteData struct {
	uri        string
	changeDate time.Time

	Title string
	// Text holds the serialized <note-content> fragment, not plain text.
	Text                   string
	CreateDate             time.Time
	MetadataChangeDate     time.Time
	CursorPosition         int
	SelectionBoundPosition int
	Width                  int
	Height                 int
	// Tags maps normalized tag names to their display names.
	Tags map[string]string
}

// NewNoteData returns empty data for the note identified by uri.
func NewNoteData(uri string) *NoteData {
	return &NoteData{
		uri:                    uri,
		CursorPosition:         NoPosition,
		SelectionBoundPosition: NoPosition,
		Tags:                   make(map[string]string),
	}
}

// URI returns the immutable note uri.
func (d *NoteData) URI() string { return d.uri }

// ChangeDate returns the last content change date.
func (d *NoteData) ChangeDate() time.Time { return d.changeDate }

// SetChangeDate updates the content change date and the metadata change date together.
func (d *NoteData) SetChangeDate(t time.Time) {
	d.changeDate = t
	d.MetadataChangeDate = t
}

// SetExtent records the last window size.
func (d *NoteData) SetExtent(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.Width = width
	d.Height = height
}

// HasExtent reports whether a window size was recorded.
func (d *NoteData) HasExtent() bool {
	return d.Width != 0 && d.Height != 0
}

// HasPosition reports whether a cursor position was recorded.
func (d *NoteData) HasPosition() bool {
	return d.CursorPosition != NoPosition
}

// TagNames returns the display names of the note's tags, ordered by normalized name.
func (d *NoteData) TagNames() []string {
	keys := make([]string, 0, len(d.Tags))
	for k := range d.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = d.Tags[k]
	}
	return out
}

// Clone returns a deep copy of d.
func (d *NoteData) Clone() *NoteData {
	c := *d
	c.Tags = make(map[string]string, len(d.Tags))
	for k, v := range d.Tags {
		c.Tags[k] = v
	}
	return &c
}

// NoteFile is a lightweight description of a note file on disk.
type NoteFile struct {
	Path     string    `json:"path"`
	Checksum string    `json:"checksum"`
	ModTime  time.Time `json:"mod_time"`
}
