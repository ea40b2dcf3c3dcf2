// Package testutil provides shared test helpers for setting up note
// directories, stores and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/notecore/internal/index"
	"github.com/starford/notecore/internal/notestore"
	"github.com/starford/notecore/internal/storage"
)

// Logger discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notecore-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNotesDir creates a temporary notes directory with a storage.FS.
func TestNotesDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore opens a note store over a fresh notes directory.
func TestStore(t *testing.T, opts ...notestore.Option) (*notestore.Store, *storage.FS) {
	t.Helper()
	_, fs := TestNotesDir(t)
	opts = append([]notestore.Option{notestore.WithLogger(Logger())}, opts...)
	s, err := notestore.New(fs, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s, fs
}

// Content builds the <note-content> of a note titled title.
func Content(title, rest string) string {
	return "<note-content version=\"0.1\"><note-title>" + title + "</note-title>\n\n" + rest + "</note-content>"
}
