package notestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/tags"
)

func TestMoveToNotebook(t *testing.T) {
	s, _ := newTestStore(t)
	n, err := s.CreateWithXML("Alpha", body("Alpha", ""))
	require.NoError(t, err)
	assert.Equal(t, "", s.NotebookOf(n))

	require.NoError(t, s.MoveToNotebook(n, "Work"))
	assert.Equal(t, "Work", s.NotebookOf(n))
	assert.Equal(t, []string{"Work"}, s.Tags().Notebooks())

	require.NoError(t, s.MoveToNotebook(n, "Home"))
	assert.Equal(t, "Home", s.NotebookOf(n))
	assert.Empty(t, s.NotesInNotebook("Work"))
	require.Len(t, s.NotesInNotebook("home"), 1)

	require.NoError(t, s.MoveToNotebook(n, ""))
	assert.Equal(t, "", s.NotebookOf(n))
}

func TestDeleteNotebook(t *testing.T) {
	s, _ := newTestStore(t)
	a, err := s.CreateWithXML("Alpha", body("Alpha", ""))
	require.NoError(t, err)
	b, err := s.CreateWithXML("Beta", body("Beta", ""))
	require.NoError(t, err)
	require.NoError(t, s.MoveToNotebook(a, "Work"))
	require.NoError(t, s.MoveToNotebook(b, "Work"))

	require.NoError(t, s.DeleteNotebook("work"))
	assert.Equal(t, "", s.NotebookOf(a))
	assert.Equal(t, "", s.NotebookOf(b))
	assert.Empty(t, s.Tags().Notebooks())
	assert.Equal(t, 2, s.Len())

	assert.ErrorIs(t, s.DeleteNotebook("work"), apperr.ErrNotFound)
}

func TestCreateInNotebook(t *testing.T) {
	s, _ := newTestStore(t)

	n, err := s.CreateInNotebook("Work")
	require.NoError(t, err)
	assert.Equal(t, "New Note 1", n.Title())
	assert.Equal(t, "Work", s.NotebookOf(n))
	assert.Contains(t, n.XMLContent(), "<note-title>New Note 1</note-title>")

	template, ok := s.Find("Work Notebook Template")
	require.True(t, ok)
	tmplTag, ok := s.Tags().GetSystemTag(tags.TemplateNoteSystemTag)
	require.True(t, ok)
	assert.True(t, template.ContainsTag(tmplTag))
	assert.Equal(t, "Work", s.NotebookOf(template))
	assert.False(t, n.ContainsTag(tmplTag))

	_, ok = s.FindTemplateNote()
	assert.False(t, ok, "a notebook template is not the default template")

	again, err := s.NotebookTemplateNote("Work")
	require.NoError(t, err)
	assert.Same(t, template, again)
}
