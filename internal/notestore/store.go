// Package notestore holds every note of a notes directory and keeps the tag
// registry, the title index and the files in step with them.
package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/checksum"
	"github.com/starford/notecore/internal/events"
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/richtext"
	"github.com/starford/notecore/internal/storage"
	"github.com/starford/notecore/internal/tags"
	"github.com/starford/notecore/internal/trie"
)

// DefaultTemplateTitle is the title given to a newly created template note.
const DefaultTemplateTitle = "New Note Template"

// DefaultNoteTitle is the base of generated titles for untitled notes.
const DefaultNoteTitle = "New Note"

// Option configures a Store.
type Option func(*Store)

// WithBackupDir moves deleted note files into dir instead of removing them.
func WithBackupDir(dir string) Option {
	return func(s *Store) { s.backupDir = dir }
}

// WithTemplateTitle sets the title used when the template note has to be created.
func WithTemplateTitle(title string) Option {
	return func(s *Store) {
		if strings.TrimSpace(title) != "" {
			s.templateTitle = title
		}
	}
}

// WithAutoBullets turns "* " list conversion on or off in opened documents.
func WithAutoBullets(on bool) Option {
	return func(s *Store) { s.env.AutoBullets = on }
}

// WithBus publishes note events on bus.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) { s.env.Bus = bus }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.env.Logger = logger }
}

// WithClock replaces time.Now for date stamping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.env.Now = now }
}

// Store is the collection of all notes. It is not safe for concurrent use;
// goroutines share it through Exec.
type Store struct {
	mu sync.Mutex

	files         *trackedFiles
	env           *note.Env
	backupDir     string
	templateTitle string

	notes  []*note.Note
	titles *titleIndex
	logger *slog.Logger
	unsub  func()
}

// New loads every note file found in files.
func New(files storage.Provider, opts ...Option) (*Store, error) {
	tracked := newTrackedFiles(files)
	s := &Store{
		files:         tracked,
		templateTitle: DefaultTemplateTitle,
		titles:        newTitleIndex(),
		env: &note.Env{
			Files:       tracked,
			Tags:        tags.NewRegistry(),
			Catalog:     richtext.NewCatalog(),
			AutoBullets: true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.env.Bus == nil {
		s.env.Bus = events.NewBus()
	}
	if s.env.Logger == nil {
		s.env.Logger = slog.Default()
	}
	s.logger = s.env.Logger
	s.env.Linker = s

	if err := s.load(); err != nil {
		return nil, err
	}
	s.unsub = s.env.Bus.Subscribe(s.handleEvent)
	return s, nil
}

func (s *Store) load() error {
	list, err := s.files.List()
	if err != nil {
		return fmt.Errorf("notestore: load: %w", err)
	}
	for _, f := range list {
		n, err := note.Load(s.env, f.Path)
		if err != nil {
			s.logger.Error("notestore: skipping unreadable note",
				slog.String("path", f.Path),
				slog.String("error", err.Error()))
			continue
		}
		s.notes = append(s.notes, n)
	}
	s.sortNotes()
	s.titles.rebuild(s.notes)
	s.logger.Info("notestore: loaded", slog.Int("notes", len(s.notes)))
	return nil
}

// Close detaches the store from the event bus.
func (s *Store) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// Exec runs fn while holding the store lock. Every goroutine other than the
// one that created the store goes through Exec.
func (s *Store) Exec(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) handleEvent(e events.Event) {
	switch e.Kind {
	case events.NoteSaved:
		s.sortNotes()
	case events.NoteRenamed:
		s.sortNotes()
		s.titles.rebuild(s.notes)
	}
}

// sortNotes orders notes by change date, most recent first.
func (s *Store) sortNotes() {
	slices.SortStableFunc(s.notes, func(a, b *note.Note) int {
		return b.ChangeDate().Compare(a.ChangeDate())
	})
}

// Tags returns the tag registry shared by all notes.
func (s *Store) Tags() *tags.Registry { return s.env.Tags }

// Catalog returns the rich text tag catalog shared by opened documents.
func (s *Store) Catalog() *richtext.Catalog { return s.env.Catalog }

// Bus returns the bus note events are published on.
func (s *Store) Bus() *events.Bus { return s.env.Bus }

// Notes returns all notes, most recently changed first.
func (s *Store) Notes() []*note.Note {
	return slices.Clone(s.notes)
}

// Len returns the number of notes.
func (s *Store) Len() int { return len(s.notes) }

// Find looks a note up by title, ignoring case.
func (s *Store) Find(title string) (*note.Note, bool) {
	fold := cases.Fold()
	key := fold.String(title)
	for _, n := range s.notes {
		if fold.String(n.Title()) == key {
			return n, true
		}
	}
	return nil, false
}

// FindByURI looks a note up by uri.
func (s *Store) FindByURI(uri string) (*note.Note, bool) {
	for _, n := range s.notes {
		if n.URI() == uri {
			return n, true
		}
	}
	return nil, false
}

// Resolve looks a note up by uri when ref starts with the note uri prefix,
// and by title otherwise.
func (s *Store) Resolve(ref string) (*note.Note, bool) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, note.URIPrefix) {
		return s.FindByURI(ref)
	}
	return s.Find(ref)
}

func (s *Store) findByPath(path string) (*note.Note, bool) {
	for _, n := range s.notes {
		if n.Path() == path {
			return n, true
		}
	}
	return nil, false
}

// UniqueName returns the first "base N", counting from 1, that no note is
// titled.
func (s *Store) UniqueName(base string) string {
	for i := 1; ; i++ {
		title := fmt.Sprintf("%s %d", base, i)
		if _, ok := s.Find(title); !ok {
			return title
		}
	}
}

// Create makes a note from a title typed by the user. Text after the first
// line break is treated as body; a blank title gets a generated one. Without
// a body the note is built from the template note.
func (s *Store) Create(title string) (*note.Note, error) {
	return s.CreateWithGUID(title, "")
}

// CreateWithGUID is Create with a fixed guid. An empty guid generates one.
func (s *Store) CreateWithGUID(title, guid string) (*note.Note, error) {
	title, body := SplitTitleFromContent(title)
	if title == "" {
		title = s.UniqueName(DefaultNoteTitle)
	}
	if _, ok := s.Find(title); ok {
		return nil, fmt.Errorf("notestore: create %q: %w", title, apperr.ErrAlreadyExists)
	}
	template, err := s.GetOrCreateTemplateNote()
	if err != nil {
		return nil, fmt.Errorf("notestore: create: %w", err)
	}
	if body == "" {
		return s.createFromTemplate(title, template, guid)
	}

	n, err := s.createNote(title, NoteTemplateContent(title), guid)
	if err != nil {
		return nil, err
	}
	selectBody(n)
	return n, nil
}

// CreateWithXML makes a note with the given title and <note-content> body.
func (s *Store) CreateWithXML(title, xmlContent string) (*note.Note, error) {
	return s.createNote(title, xmlContent, "")
}

// createNote rejects empty and taken titles before any file is written.
func (s *Store) createNote(title, xmlContent, guid string) (*note.Note, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("notestore: create: %w", apperr.ErrInvalidTitle)
	}
	if _, ok := s.Find(title); ok {
		return nil, fmt.Errorf("notestore: create %q: %w", title, apperr.ErrAlreadyExists)
	}
	if guid == "" {
		guid = uuid.NewString()
	}
	path := guid + storage.NoteExt
	if s.files.Exists(path) {
		return nil, fmt.Errorf("notestore: create %s: %w", path, apperr.ErrConflict)
	}

	n := note.New(s.env, title, path)
	if err := n.SetXMLContent(xmlContent); err != nil {
		return nil, fmt.Errorf("notestore: create: %w", err)
	}
	s.addNote(n)
	n.QueueSave(note.ContentChanged)
	return n, nil
}

func (s *Store) addNote(n *note.Note) {
	s.notes = append(s.notes, n)
	s.sortNotes()
	s.titles.add(n)
	s.env.Bus.Publish(events.Event{Kind: events.NoteAdded, URI: n.URI(), Title: n.Title()})
}

// selectBody selects everything after the title so typing replaces it.
func selectBody(n *note.Note) {
	doc := n.Buffer()
	start := len([]rune(n.Title()))
	for start < doc.Len() && isSpace(doc.CharAt(start)) {
		start++
	}
	doc.SelectRange(doc.Len(), start)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// Delete removes n from the store. Its file is moved to the backup directory
// when one is configured and removed otherwise. Notes linking to n keep their
// links, now broken.
func (s *Store) Delete(n *note.Note) error {
	if n == nil {
		return fmt.Errorf("notestore: delete: %w", apperr.ErrNotFound)
	}
	if !slices.Contains(s.notes, n) {
		return fmt.Errorf("notestore: delete %s: %w", n.URI(), apperr.ErrNotFound)
	}

	if s.files.Exists(n.Path()) {
		var err error
		if s.backupDir != "" {
			err = s.files.Backup(n.Path(), s.backupDir)
		} else {
			err = s.files.Delete(n.Path())
		}
		if err != nil {
			return fmt.Errorf("notestore: delete %s: %w", n.URI(), err)
		}
		s.files.forget(n.Path())
	}

	s.removeNote(n)
	for _, other := range s.NotesLinkingTo(n.Title()) {
		other.RemoveLinks(n.Title(), n)
	}
	s.logger.Debug("notestore: deleted", slog.String("uri", n.URI()))
	return nil
}

// removeNote takes n out of the store and out of every tag.
func (s *Store) removeNote(n *note.Note) {
	idx := slices.Index(s.notes, n)
	if idx < 0 {
		return
	}
	s.notes = slices.Delete(s.notes, idx, idx+1)
	n.Delete()
	s.titles.rebuild(s.notes)
	s.env.Bus.Publish(events.Event{Kind: events.NoteDeleted, URI: n.URI(), Title: n.Title()})
}

// Rename retitles n from a user action: other notes linking to its old title
// are rewritten to the new one.
func (s *Store) Rename(n *note.Note, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("notestore: rename: %w", apperr.ErrInvalidTitle)
	}
	if other, ok := s.Find(title); ok && other != n {
		return fmt.Errorf("notestore: rename to %q: %w", title, apperr.ErrAlreadyExists)
	}
	n.Retitle(title)
	return nil
}

// Import copies the note file at path into the notes directory and loads it.
// A file name already in use is replaced by a fresh guid; a title already in
// use gets a numbered suffix.
func (s *Store) Import(path string) (*note.Note, error) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, storage.NoteExt) || s.files.Exists(name) {
		name = uuid.NewString() + storage.NoteExt
	}
	if err := s.files.Import(path, name); err != nil {
		return nil, fmt.Errorf("notestore: import: %w", err)
	}
	n, err := note.Load(s.env, name)
	if err != nil {
		if delErr := s.files.Delete(name); delErr != nil {
			s.logger.Warn("notestore: import cleanup failed",
				slog.String("path", name),
				slog.String("error", delErr.Error()))
		}
		s.files.forget(name)
		return nil, fmt.Errorf("notestore: import: %w", err)
	}
	if _, taken := s.Find(n.Title()); taken || n.Title() == "" {
		base := n.Title()
		if base == "" {
			base = DefaultNoteTitle
		}
		n.RenameWithoutLinkUpdate(s.UniqueName(base))
	}
	s.addNote(n)
	return n, nil
}

// NotesLinkingTo returns every note other than the one titled title whose
// complete xml holds an internal link to title.
func (s *Store) NotesLinkingTo(title string) []*note.Note {
	marker := note.LinkMarker(title)
	var out []*note.Note
	for _, n := range slices.Clone(s.notes) {
		if n.Title() == title {
			continue
		}
		if strings.Contains(n.CompleteXML(), marker) {
			out = append(out, n)
		}
	}
	return out
}

// FindTrieMatches returns every title occurrence in text. Hit values are
// note uris.
func (s *Store) FindTrieMatches(text string) []trie.Hit[string] {
	return s.titles.find(text)
}

// TrieMaxLength is the rune length of the longest note title.
func (s *Store) TrieMaxLength() int { return s.titles.maxLength() }

// SaveAll writes every note with unsaved changes.
func (s *Store) SaveAll() error {
	var errs []error
	for _, n := range slices.Clone(s.notes) {
		if err := n.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// trackedFiles remembers the checksum of every note file the store read or
// wrote so the watcher can tell its own writes from foreign ones.
type trackedFiles struct {
	storage.Provider

	mu   sync.Mutex
	sums map[string]string
}

func newTrackedFiles(p storage.Provider) *trackedFiles {
	return &trackedFiles{Provider: p, sums: make(map[string]string)}
}

func (t *trackedFiles) Read(path string) ([]byte, error) {
	data, err := t.Provider.Read(path)
	if err == nil {
		t.remember(path, checksum.Sum(data))
	}
	return data, err
}

func (t *trackedFiles) Write(path string, content []byte) error {
	if err := t.Provider.Write(path, content); err != nil {
		return err
	}
	t.remember(path, checksum.Sum(content))
	return nil
}

func (t *trackedFiles) remember(path, sum string) {
	t.mu.Lock()
	t.sums[path] = sum
	t.mu.Unlock()
}

func (t *trackedFiles) forget(path string) {
	t.mu.Lock()
	delete(t.sums, path)
	t.mu.Unlock()
}

// known reports whether sum is the last content the store saw at path.
func (t *trackedFiles) known(path, sum string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sums[path] == sum
}
