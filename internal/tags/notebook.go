package tags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/notecore/internal/apperr"
)

// NotebookPrefix follows SystemTagPrefix in notebook tag names.
const NotebookPrefix = "notebook:"

// Template markers, applied as system tags.
const (
	TemplateNoteSystemTag          = "template"
	TemplateNoteSaveSizeSystemTag  = "template:save-size"
	TemplateNoteSaveSelectionTag   = "template:save-selection"
	TemplateNoteSaveTitleSystemTag = "template:save-title"
)

const notebookTagPrefix = SystemTagPrefix + NotebookPrefix

// NotebookTagName returns the full tag name that represents notebook.
func NotebookTagName(notebook string) string {
	return notebookTagPrefix + strings.TrimSpace(notebook)
}

// IsNotebookTag reports whether t names a notebook.
func IsNotebookTag(t *Tag) bool {
	return t != nil && strings.HasPrefix(t.normalized, notebookTagPrefix)
}

// NotebookName returns the notebook a notebook tag stands for, or "".
func NotebookName(t *Tag) string {
	if !IsNotebookTag(t) {
		return ""
	}
	return t.name[len(notebookTagPrefix):]
}

// NotebookTag looks up the tag of an existing notebook.
func (r *Registry) NotebookTag(notebook string) (*Tag, bool) {
	if strings.TrimSpace(notebook) == "" {
		return nil, false
	}
	return r.GetTag(NotebookTagName(notebook))
}

// GetOrCreateNotebookTag returns the tag for notebook, creating it on first use.
func (r *Registry) GetOrCreateNotebookTag(notebook string) (*Tag, error) {
	if strings.TrimSpace(notebook) == "" {
		return nil, fmt.Errorf("tags: notebook name is empty: %w", apperr.ErrInvalidTag)
	}
	return r.GetOrCreateTag(NotebookTagName(notebook))
}

// Notebooks returns the names of all notebooks, sorted.
func (r *Registry) Notebooks() []string {
	var out []string
	for _, t := range r.internal {
		if IsNotebookTag(t) {
			out = append(out, NotebookName(t))
		}
	}
	sort.Strings(out)
	return out
}
