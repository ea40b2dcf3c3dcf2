package notestore

import (
	"fmt"
	"strings"

	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/tags"
	"github.com/starford/notecore/internal/xmlenc"
)

// templateBody is the placeholder body of new notes and template notes.
const templateBody = "Describe your new note here."

// NoteTemplateContent returns the body of a fresh note titled title.
func NoteTemplateContent(title string) string {
	return "<note-content><note-title>" + xmlenc.Encode(title) + "</note-title>\n\n" +
		templateBody + "</note-content>"
}

// SplitTitleFromContent splits user input into a title, its first line with
// surrounding spaces and ".,;" trimmed, and a body, its second line.
func SplitTitleFromContent(input string) (title, body string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ""
	}
	lines := strings.Split(strings.ReplaceAll(input, "\r", "\n"), "\n")
	title = strings.Trim(strings.TrimSpace(lines[0]), ".,;")
	if title == "" {
		return "", ""
	}
	if len(lines) > 1 {
		body = lines[1]
	}
	return title, body
}

// SanitizeXMLContent drops the whitespace, other than carriage returns,
// that precedes the first line break.
func SanitizeXMLContent(xmlContent string) string {
	nl := strings.IndexByte(xmlContent, '\n')
	if nl < 0 {
		return xmlContent
	}
	head := []byte(xmlContent[:nl])
	for i := len(head) - 1; i >= 0; i-- {
		c := head[i]
		if c == '\r' {
			continue
		}
		if !isSpace(rune(c)) {
			break
		}
		head = append(head[:i], head[i+1:]...)
	}
	return string(head) + xmlContent[nl:]
}

// FindTemplateNote returns the template note that belongs to no notebook.
func (s *Store) FindTemplateNote() (*note.Note, bool) {
	tag, ok := s.env.Tags.GetSystemTag(tags.TemplateNoteSystemTag)
	if !ok {
		return nil, false
	}
	for _, n := range s.notes {
		if !n.ContainsTag(tag) {
			continue
		}
		if s.NotebookOf(n) == "" {
			return n, true
		}
	}
	return nil, false
}

// GetOrCreateTemplateNote returns the template note, creating it when there
// is none.
func (s *Store) GetOrCreateTemplateNote() (*note.Note, error) {
	if n, ok := s.FindTemplateNote(); ok {
		return n, nil
	}
	title := s.templateTitle
	if _, taken := s.Find(title); taken {
		title = s.UniqueName(title)
	}
	n, err := s.createNote(title, NoteTemplateContent(title), "")
	if err != nil {
		return nil, fmt.Errorf("notestore: template note: %w", err)
	}
	tag, err := s.env.Tags.GetOrCreateSystemTag(tags.TemplateNoteSystemTag)
	if err != nil {
		return nil, fmt.Errorf("notestore: template note: %w", err)
	}
	if err := n.AddTag(tag); err != nil {
		return nil, fmt.Errorf("notestore: template note: %w", err)
	}
	n.QueueSave(note.ContentChanged)
	return n, nil
}

// CreateFromTemplate makes a note titled title whose body is copied from
// template. A template tagged template:save-title passes on its own title,
// numbered; one tagged template:save-size passes on its window size.
func (s *Store) CreateFromTemplate(title string, template *note.Note) (*note.Note, error) {
	if template == nil {
		return nil, fmt.Errorf("notestore: create from template: no template note")
	}
	return s.createFromTemplate(title, template, "")
}

func (s *Store) createFromTemplate(title string, template *note.Note, guid string) (*note.Note, error) {
	saveTitle, err := s.env.Tags.GetOrCreateSystemTag(tags.TemplateNoteSaveTitleSystemTag)
	if err != nil {
		return nil, fmt.Errorf("notestore: create from template: %w", err)
	}
	if template.ContainsTag(saveTitle) {
		title = s.UniqueName(template.Title())
	}

	body := strings.Replace(template.XMLContent(),
		xmlenc.Encode(template.Title()), xmlenc.Encode(title), 1)
	body = SanitizeXMLContent(body)

	n, err := s.createNote(title, body, guid)
	if err != nil {
		return nil, err
	}

	saveSize, err := s.env.Tags.GetOrCreateSystemTag(tags.TemplateNoteSaveSizeSystemTag)
	if err != nil {
		return nil, fmt.Errorf("notestore: create from template: %w", err)
	}
	data := template.Data()
	if data.HasExtent() && template.ContainsTag(saveSize) {
		n.SetExtent(data.Width, data.Height)
	}
	return n, nil
}
