package notestore

import (
	"fmt"
	"strings"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/tags"
)

// NotebookOf returns the name of the notebook n belongs to, or "".
func (s *Store) NotebookOf(n *note.Note) string {
	for _, tag := range n.Tags() {
		if tags.IsNotebookTag(tag) {
			return tags.NotebookName(tag)
		}
	}
	return ""
}

// NotesInNotebook returns the notes of notebook, most recently changed first.
func (s *Store) NotesInNotebook(notebook string) []*note.Note {
	tag, ok := s.env.Tags.NotebookTag(notebook)
	if !ok {
		return nil
	}
	var out []*note.Note
	for _, n := range s.notes {
		if n.ContainsTag(tag) {
			out = append(out, n)
		}
	}
	return out
}

// MoveToNotebook puts n into notebook, taking it out of any other one. An
// empty notebook leaves n in none.
func (s *Store) MoveToNotebook(n *note.Note, notebook string) error {
	for _, tag := range n.Tags() {
		if tags.IsNotebookTag(tag) {
			n.RemoveTag(tag)
		}
	}
	if strings.TrimSpace(notebook) == "" {
		return nil
	}
	tag, err := s.env.Tags.GetOrCreateNotebookTag(notebook)
	if err != nil {
		return fmt.Errorf("notestore: move to notebook: %w", err)
	}
	if err := n.AddTag(tag); err != nil {
		return fmt.Errorf("notestore: move to notebook: %w", err)
	}
	return nil
}

// DeleteNotebook takes every note out of notebook and forgets its tag. The
// notes themselves stay.
func (s *Store) DeleteNotebook(notebook string) error {
	tag, ok := s.env.Tags.NotebookTag(notebook)
	if !ok {
		return fmt.Errorf("notestore: delete notebook %q: %w", notebook, apperr.ErrNotFound)
	}
	for _, n := range s.Notes() {
		n.RemoveTag(tag)
	}
	s.env.Tags.RemoveTag(tag)
	return nil
}

// NotebookTemplateNote returns the template note of notebook, creating it
// with the notebook and template tags when there is none.
func (s *Store) NotebookTemplateNote(notebook string) (*note.Note, error) {
	nbTag, err := s.env.Tags.GetOrCreateNotebookTag(notebook)
	if err != nil {
		return nil, fmt.Errorf("notestore: notebook template: %w", err)
	}
	title := tags.NotebookName(nbTag) + " Notebook Template"
	if n, ok := s.Find(title); ok {
		return n, nil
	}

	n, err := s.createNote(title, NoteTemplateContent(title), "")
	if err != nil {
		return nil, fmt.Errorf("notestore: notebook template: %w", err)
	}
	tmplTag, err := s.env.Tags.GetOrCreateSystemTag(tags.TemplateNoteSystemTag)
	if err != nil {
		return nil, fmt.Errorf("notestore: notebook template: %w", err)
	}
	for _, tag := range []*tags.Tag{tmplTag, nbTag} {
		if err := n.AddTag(tag); err != nil {
			return nil, fmt.Errorf("notestore: notebook template: %w", err)
		}
	}
	n.QueueSave(note.ContentChanged)
	return n, nil
}

// CreateInNotebook makes an untitled note from the notebook's template and
// files it in notebook.
func (s *Store) CreateInNotebook(notebook string) (*note.Note, error) {
	template, err := s.NotebookTemplateNote(notebook)
	if err != nil {
		return nil, err
	}
	n, err := s.createFromTemplate(s.UniqueName(DefaultNoteTitle), template, "")
	if err != nil {
		return nil, fmt.Errorf("notestore: create in notebook: %w", err)
	}
	if err := s.MoveToNotebook(n, notebook); err != nil {
		return nil, err
	}
	return n, nil
}
