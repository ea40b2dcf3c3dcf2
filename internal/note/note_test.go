package note

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/archiver"
	"github.com/starford/notecore/internal/events"
	"github.com/starford/notecore/internal/models"
	"github.com/starford/notecore/internal/richtext"
	"github.com/starford/notecore/internal/storage"
	"github.com/starford/notecore/internal/tags"
)

// scanLinker finds linking notes the way the store does, over a fixed list.
type scanLinker struct{ notes []*Note }

func (l *scanLinker) NotesLinkingTo(title string) []*Note {
	var out []*Note
	for _, n := range l.notes {
		if n.Title() != title && strings.Contains(n.CompleteXML(), LinkMarker(title)) {
			out = append(out, n)
		}
	}
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestEnv(t *testing.T) (*Env, *storage.FS, *clock) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	env := &Env{
		Files:       fs,
		Tags:        tags.NewRegistry(),
		Catalog:     richtext.NewCatalog(),
		Linker:      &scanLinker{},
		Bus:         events.NewBus(),
		AutoBullets: true,
		Now:         c.now,
	}
	return env, fs, c
}

func content(body string) string {
	return `<note-content version="0.1">` + body + `</note-content>`
}

func TestNew_URIFromPath(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Hello", "3f1c.note")
	if n.URI() != "note://gnote/3f1c" || n.ID() != "3f1c" {
		t.Errorf("uri = %q id = %q", n.URI(), n.ID())
	}
	if n.CreateDate().IsZero() || !n.ChangeDate().Equal(n.CreateDate()) {
		t.Errorf("dates: create %v change %v", n.CreateDate(), n.ChangeDate())
	}
	if !n.IsNew() {
		t.Error("a just created note should be new")
	}
}

func TestEnvNow_MatchesFileDates(t *testing.T) {
	var env Env
	now := env.now()
	back, err := time.Parse(models.DateLayout, now.Format(models.DateLayout))
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(now) {
		t.Errorf("stamped %v, file reads back %v", now, back)
	}
}

func TestSaveAndLoad(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Hello", "a.note")
	if err := n.SetXMLContent(content("Hello\n\nworld")); err != nil {
		t.Fatal(err)
	}
	work, _ := env.Tags.GetOrCreateTag("Work")
	if err := n.AddTag(work); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if n.IsDirty() {
		t.Error("AddTag should have saved the note")
	}

	env2 := *env
	env2.Tags = tags.NewRegistry()
	loaded, err := Load(&env2, "a.note")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Title() != "Hello" || loaded.XMLContent() != content("Hello\n\nworld") {
		t.Errorf("loaded %q / %q", loaded.Title(), loaded.XMLContent())
	}
	tag, ok := env2.Tags.GetTag("work")
	if !ok || !tag.HasNote(loaded.URI()) || !loaded.ContainsTag(tag) {
		t.Error("tag membership was not restored on load")
	}
}

func TestLoad_FillsMissingDatesFromFile(t *testing.T) {
	env, fs, _ := newTestEnv(t)
	doc := `<?xml version="1.0" encoding="utf-8"?>` + "\n" +
		`<note version="0.3" xmlns="http://beatniksoftware.com/tomboy"><title>T</title>` +
		`<text xml:space="preserve">` + content("T") + `</text></note>`
	if err := os.WriteFile(filepath.Join(fs.Root(), "d.note"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := Load(env, "d.note")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mt, _ := fs.ModTime("d.note")
	if !n.CreateDate().Equal(mt) || !n.ChangeDate().Equal(mt) {
		t.Errorf("dates = %v/%v, want %v", n.CreateDate(), n.ChangeDate(), mt)
	}
}

func TestLoad_Malformed(t *testing.T) {
	env, fs, _ := newTestEnv(t)
	_ = fs.Write("bad.note", []byte("<note><title>x</note>"))
	if _, err := Load(env, "bad.note"); !errors.Is(err, apperr.ErrInvalidXML) {
		t.Errorf("err = %v, want ErrInvalidXML", err)
	}
}

func TestQueueSave_ChangeTypes(t *testing.T) {
	env, _, c := newTestEnv(t)
	n := New(env, "Dates", "dates.note")
	created := n.ChangeDate()

	c.t = c.t.Add(time.Hour)
	n.QueueSave(OtherDataChanged)
	if !n.ChangeDate().Equal(created) {
		t.Error("OtherDataChanged must not move the change date")
	}
	if !n.MetadataChangeDate().Equal(c.t) {
		t.Errorf("metadata date = %v, want %v", n.MetadataChangeDate(), c.t)
	}

	c.t = c.t.Add(time.Hour)
	n.QueueSave(ContentChanged)
	if !n.ChangeDate().Equal(c.t) || !n.MetadataChangeDate().Equal(c.t) {
		t.Error("ContentChanged must move both dates")
	}

	c.t = c.t.Add(time.Hour)
	n.QueueSave(NoChange)
	if n.ChangeDate().Equal(c.t) || n.MetadataChangeDate().Equal(c.t) {
		t.Error("NoChange must not move any date")
	}
}

type failingFiles struct{ *storage.FS }

func (failingFiles) Write(string, []byte) error { return errors.New("disk full") }

func TestSave_FailureKeepsNoteDirty(t *testing.T) {
	env, fs, _ := newTestEnv(t)
	env.Files = failingFiles{fs}
	saved := 0
	env.Bus.Subscribe(func(e events.Event) {
		if e.Kind == events.NoteSaved {
			saved++
		}
	})

	n := New(env, "Doomed", "doomed.note")
	n.QueueSave(ContentChanged)
	if !n.IsDirty() {
		t.Error("note should stay dirty after a failed write")
	}
	if saved != 0 {
		t.Errorf("saved events = %d", saved)
	}

	env.Files = fs
	if err := n.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n.IsDirty() || saved != 1 {
		t.Errorf("dirty = %v saved = %d", n.IsDirty(), saved)
	}
}

func TestSetTitle_FromUserRewritesLinksOnce(t *testing.T) {
	env, fs, _ := newTestEnv(t)
	alpha := New(env, "Alpha", "alpha.note")
	_ = alpha.SetXMLContent(content("Alpha\n\nSee " + LinkMarker("Beta")))
	beta := New(env, "Beta", "beta.note")
	_ = beta.SetXMLContent(content("Beta"))
	env.Linker = &scanLinker{notes: []*Note{alpha, beta}}

	var renamed []events.Event
	savedAlpha := 0
	env.Bus.Subscribe(func(e events.Event) {
		switch {
		case e.Kind == events.NoteRenamed:
			renamed = append(renamed, e)
		case e.Kind == events.NoteSaved && e.URI == alpha.URI():
			savedAlpha++
		}
	})

	beta.SetTitle("Gamma", true)

	if len(renamed) != 1 || renamed[0].OldTitle != "Beta" || renamed[0].Title != "Gamma" {
		t.Fatalf("renamed events = %+v", renamed)
	}
	if savedAlpha != 1 {
		t.Errorf("alpha saved %d times, want 1", savedAlpha)
	}
	if !strings.Contains(alpha.XMLContent(), LinkMarker("Gamma")) {
		t.Errorf("alpha content = %q", alpha.XMLContent())
	}
	raw, _ := fs.Read("alpha.note")
	if !strings.Contains(string(raw), LinkMarker("Gamma")) {
		t.Error("alpha was not persisted with the new link")
	}
	raw, _ = fs.Read("beta.note")
	if archiver.TitleFromNoteXML(string(raw)) != "Gamma" {
		t.Error("beta was not persisted under the new title")
	}
}

func TestSetTitle_Unchanged(t *testing.T) {
	env, fs, _ := newTestEnv(t)
	n := New(env, "Same", "same.note")
	n.SetTitle("Same", true)
	if fs.Exists("same.note") {
		t.Error("an unchanged title must not save")
	}
}

func TestRetitle_UpdatesFirstLine(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Old", "r.note")
	_ = n.SetXMLContent(content("Old\n\nbody"))
	n.Retitle("New")
	if n.Title() != "New" || n.XMLContent() != content("New\n\nbody") {
		t.Errorf("%q / %q", n.Title(), n.XMLContent())
	}

	doc := n.Buffer()
	n.Retitle("Newer")
	if got := doc.Text(); got != "Newer\n\nbody" {
		t.Errorf("document text = %q", got)
	}
}

func TestRemoveLinks_BreaksLinks(t *testing.T) {
	env, _, _ := newTestEnv(t)
	gone := New(env, "Gone", "gone.note")
	n := New(env, "Keeper", "keeper.note")
	_ = n.SetXMLContent(content("Keeper\n" + LinkMarker("Gone")))
	n.RemoveLinks("Gone", gone)
	if want := content("Keeper\n<link:broken>Gone</link:broken>"); n.XMLContent() != want {
		t.Errorf("content = %q, want %q", n.XMLContent(), want)
	}
}

func TestRenameLinks_InOpenDocument(t *testing.T) {
	env, _, _ := newTestEnv(t)
	target := New(env, "Target", "target.note")
	n := New(env, "Host", "host.note")
	_ = n.SetXMLContent(content("Host\n" + LinkMarker("Tgt") + " and " + LinkMarker("Tgt")))
	n.Buffer()
	n.RenameLinks("Tgt", target)
	want := content("Host\n" + LinkMarker("Target") + " and " + LinkMarker("Target"))
	if n.XMLContent() != want {
		t.Errorf("content = %q, want %q", n.XMLContent(), want)
	}
}

func TestTags_Bidirectional(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Tagged", "t.note")
	a, _ := env.Tags.GetOrCreateTag("a")
	b, _ := env.Tags.GetOrCreateTag("b")
	_ = n.AddTag(a)
	_ = n.AddTag(b)
	_ = n.AddTag(a)

	if got := len(n.Tags()); got != 2 {
		t.Fatalf("tags = %d", got)
	}
	n.RemoveTag(a)
	if n.ContainsTag(a) || a.HasNote(n.URI()) {
		t.Error("a should be gone on both sides")
	}
	if !n.ContainsTag(b) || !b.HasNote(n.URI()) {
		t.Error("b should remain on both sides")
	}

	n.Delete()
	if n.ContainsTag(b) || b.HasNote(n.URI()) || b.Popularity() != 0 {
		t.Error("delete should detach every tag")
	}
}

func TestAddTag_Nil(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "x", "x.note")
	if err := n.AddTag(nil); !errors.Is(err, apperr.ErrInvalidTag) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadForeignNoteXML(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Local", "local.note")
	old, _ := env.Tags.GetOrCreateTag("old")
	_ = n.AddTag(old)

	foreign := models.NewNoteData("note://gnote/elsewhere")
	foreign.Title = "Remote"
	foreign.Text = content("Remote\nbody")
	changed := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)
	foreign.SetChangeDate(changed)
	foreign.Tags[tags.Normalize("New")] = "New"

	if err := n.LoadForeignNoteXML(archiver.WriteString(foreign), OtherDataChanged); err != nil {
		t.Fatalf("LoadForeignNoteXML: %v", err)
	}
	if n.Title() != "Remote" || n.XMLContent() != foreign.Text {
		t.Errorf("%q / %q", n.Title(), n.XMLContent())
	}
	if !n.ChangeDate().Equal(changed) {
		t.Errorf("change date = %v", n.ChangeDate())
	}
	if n.ContainsTag(old) || old.HasNote(n.URI()) {
		t.Error("old tag should be removed")
	}
	newTag, ok := env.Tags.GetTag("new")
	if !ok || !n.ContainsTag(newTag) || !newTag.HasNote(n.URI()) {
		t.Error("new tag should be added")
	}
}

func TestLoadForeignNoteXML_RejectsBadInput(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Intact", "intact.note")
	_ = n.SetXMLContent(content("Intact"))

	for _, doc := range []string{"", "   ", "<note><title>Broken</title>", "<other/>"} {
		if err := n.LoadForeignNoteXML(doc, OtherDataChanged); !errors.Is(err, apperr.ErrInvalidXML) {
			t.Errorf("LoadForeignNoteXML(%q) err = %v", doc, err)
		}
	}
	if n.Title() != "Intact" || n.XMLContent() != content("Intact") {
		t.Error("note was modified by rejected input")
	}
}

func TestReload_DoesNotWriteBack(t *testing.T) {
	env, fs, _ := newTestEnv(t)
	n := New(env, "Local", "r.note")
	_ = n.SetXMLContent(content("Local"))
	n.QueueSave(ContentChanged)

	var saved int
	env.Bus.Subscribe(func(e events.Event) {
		if e.Kind == events.NoteSaved {
			saved++
		}
	})

	foreign := models.NewNoteData(n.URI())
	foreign.Title = "Changed"
	foreign.Text = content("Changed\n\nnew body")
	foreign.SetChangeDate(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC))
	written := archiver.WriteString(foreign)
	if err := fs.Write("r.note", []byte(written)); err != nil {
		t.Fatal(err)
	}

	if err := n.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if n.Title() != "Changed" || n.XMLContent() != foreign.Text {
		t.Errorf("%q / %q", n.Title(), n.XMLContent())
	}
	if n.IsDirty() {
		t.Error("a reloaded note matches its file")
	}
	raw, _ := fs.Read("r.note")
	if string(raw) != written {
		t.Error("Reload wrote the file")
	}
	if saved != 1 {
		t.Errorf("saved events = %d, want 1", saved)
	}
}

func TestBuffer_EditsAreSavedOnDemand(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "Title", "buf.note")
	_ = n.SetXMLContent(content("Title\n\nbody"))
	n.QueueSave(ContentChanged)

	doc := n.Buffer()
	if doc.Cursor() != 6 {
		t.Errorf("cursor = %d, want start of second line", doc.Cursor())
	}
	if n.IsDirty() {
		t.Fatal("opening the buffer should not dirty the note")
	}
	doc.Insert(doc.Len(), " more")
	if !n.IsDirty() {
		t.Fatal("edit should dirty the note")
	}
	if err := n.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(env, "buf.note")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.XMLContent() != content("Title\n\nbody more") {
		t.Errorf("persisted content = %q", loaded.XMLContent())
	}
	if loaded.Data().CursorPosition != 6 {
		t.Errorf("cursor position = %d", loaded.Data().CursorPosition)
	}
}

func TestTextContent(t *testing.T) {
	env, _, _ := newTestEnv(t)
	n := New(env, "T", "tc.note")
	_ = n.SetXMLContent(content("T\n<bold>b</bold> &amp; c"))
	if got := n.TextContent(); got != "T\nb & c" {
		t.Errorf("TextContent = %q", got)
	}
}
