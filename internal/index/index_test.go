package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/notestore"
	"github.com/starford/notecore/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "notecore-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

func testStore(t *testing.T) *notestore.Store {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s, err := notestore.New(fs, notestore.WithLogger(discard))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func content(title, rest string) string {
	return "<note-content version=\"0.1\"><note-title>" + title + "</note-title>\n\n" + rest + "</note-content>"
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		URI:        "note://gnote/hello",
		Title:      "Hello World",
		Checksum:   "abc123",
		Tags:       []string{"go", "test"},
		ChangeDate: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", []string{"Other"}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("note://gnote/hello")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetNote(t *testing.T) {
	db := testDB(t)
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/a", Title: "A", Checksum: "1", Tags: []string{"x"}, Notebook: "Work", ChangeDate: when}, "body", nil)

	n, err := db.GetNote("note://gnote/a")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "A" || n.Notebook != "Work" || len(n.Tags) != 1 || n.Tags[0] != "x" {
		t.Errorf("row = %+v", n)
	}
	if !n.ChangeDate.Equal(when) {
		t.Errorf("change date = %v, want %v", n.ChangeDate, when)
	}

	if _, err := db.GetNote("note://gnote/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing note err = %v, want ErrNotFound", err)
	}
}

func TestListNotes_OrderPagingAndTag(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/1", Title: "One", Checksum: "1", Tags: []string{"Work"}, ChangeDate: base}, "", nil)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/2", Title: "Two", Checksum: "2", ChangeDate: base.Add(time.Hour)}, "", nil)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/3", Title: "Three", Checksum: "3", Tags: []string{"work"}, ChangeDate: base.Add(2 * time.Hour)}, "", nil)

	rows, total, err := db.ListNotes(2, 0, "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("total = %d, rows = %d", total, len(rows))
	}
	if rows[0].Title != "Three" || rows[1].Title != "Two" {
		t.Errorf("order = %s, %s", rows[0].Title, rows[1].Title)
	}

	rows, total, err = db.ListNotes(10, 0, "WORK")
	if err != nil {
		t.Fatalf("ListNotes tag: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Errorf("tag filter: total = %d, rows = %+v", total, rows)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/a", Checksum: "1", ChangeDate: time.Now()}, "body", []string{"B"})
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/c", Checksum: "2", ChangeDate: time.Now()}, "body", []string{"B"})

	bl, err := db.Backlinks("B")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 backlinks, got %d", len(bl))
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/del", Checksum: "x", ChangeDate: time.Now()}, "body", []string{"Target"})

	if err := db.DeleteNote("note://gnote/del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("note://gnote/del")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("Target")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/up", Title: "Old", Checksum: "1", ChangeDate: now}, "old body", []string{"X"})
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/up", Title: "New", Checksum: "2", Tags: []string{"new"}, ChangeDate: now}, "new body", []string{"Y"})

	cs, _ := db.GetChecksum("note://gnote/up")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("X")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("Y")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("note://gnote/nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/s", Title: "Search Me", Checksum: "1", ChangeDate: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URI != "note://gnote/s" {
		t.Errorf("search results = %+v, want 1 hit for note://gnote/s", results)
	}
}

func TestSync_IndexesAndRemovesStale(t *testing.T) {
	db := testDB(t)
	s := testStore(t)

	a, err := s.CreateWithXML("Alpha", content("Alpha", "see <link:internal>Beta</link:internal>"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateWithXML("Beta", content("Beta", "plain")); err != nil {
		t.Fatal(err)
	}
	_ = db.UpsertNote(NoteRow{URI: "note://gnote/stale", Checksum: "s", ChangeDate: time.Now()}, "", nil)

	if err := Sync(db, s.Notes(), discard); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Fatalf("indexed = %v, want 2 notes", all)
	}
	if _, ok := all["note://gnote/stale"]; ok {
		t.Error("stale note should be removed")
	}
	bl, _ := db.Backlinks("Beta")
	if len(bl) != 1 || bl[0] != a.URI() {
		t.Errorf("backlinks of Beta = %v, want [%s]", bl, a.URI())
	}

	// A second sync with nothing changed leaves checksums alone.
	before, _ := db.GetChecksum(a.URI())
	if err := Sync(db, s.Notes(), discard); err != nil {
		t.Fatal(err)
	}
	after, _ := db.GetChecksum(a.URI())
	if before != after {
		t.Error("checksum changed without edits")
	}
}

func TestFollow_TracksStoreChanges(t *testing.T) {
	db := testDB(t)
	s := testStore(t)
	stop := Follow(db, s.Bus(), s.FindByURI, discard)
	defer stop()

	n, err := s.CreateWithXML("Tracked", content("Tracked", "watchword"))
	if err != nil {
		t.Fatal(err)
	}
	row, err := db.GetNote(n.URI())
	if err != nil {
		t.Fatalf("created note not indexed: %v", err)
	}
	if row.Title != "Tracked" {
		t.Errorf("title = %q", row.Title)
	}

	if err := s.Rename(n, "Renamed"); err != nil {
		t.Fatal(err)
	}
	row, _ = db.GetNote(n.URI())
	if row == nil || row.Title != "Renamed" {
		t.Errorf("rename not indexed: %+v", row)
	}

	if err := s.Delete(n); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetNote(n.URI()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted note still indexed: %v", err)
	}
}
