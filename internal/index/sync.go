package index

import (
	"log/slog"

	"github.com/starford/notecore/internal/checksum"
	"github.com/starford/notecore/internal/events"
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/parser"
)

// Sync brings the index up to date with notes:
//   - new/changed notes are parsed and upserted
//   - notes no longer present are deleted from the index
func Sync(db *DB, notes []*note.Note, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		seen[n.URI()] = struct{}{}

		doc := n.CompleteXML()
		cs := checksum.String(doc)
		if checksums[n.URI()] == cs {
			continue
		}
		if err := indexNote(db, n.URI(), doc, cs, n); err != nil {
			logger.Warn("sync: index failed", slog.String("uri", n.URI()), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("uri", n.URI()))
		}
	}

	// Remove stale entries.
	for uri := range checksums {
		if _, ok := seen[uri]; !ok {
			if err := db.DeleteNote(uri); err != nil {
				logger.Warn("sync: delete failed", slog.String("uri", uri), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("uri", uri))
			}
		}
	}

	return nil
}

// IndexNote parses the current state of n and upserts it.
func IndexNote(db *DB, n *note.Note) error {
	doc := n.CompleteXML()
	return indexNote(db, n.URI(), doc, checksum.String(doc), n)
}

func indexNote(db *DB, uri, doc, cs string, n *note.Note) error {
	res, err := parser.Parse([]byte(doc))
	if err != nil {
		return err
	}
	row := NoteRow{
		URI:        uri,
		Title:      res.Title,
		Checksum:   cs,
		Tags:       res.Tags,
		Notebook:   res.Notebook,
		ChangeDate: n.ChangeDate(),
	}
	return db.UpsertNote(row, res.Body, res.Links)
}

// Lookup finds a note by uri.
type Lookup func(uri string) (*note.Note, bool)

// Follow keeps the index current from note events until the returned
// function is called. Failures are logged.
func Follow(db *DB, bus *events.Bus, lookup Lookup, logger *slog.Logger) (stop func()) {
	return bus.Subscribe(func(e events.Event) {
		switch e.Kind {
		case events.NoteSaved, events.NoteAdded, events.NoteRenamed:
			n, ok := lookup(e.URI)
			if !ok {
				return
			}
			if err := IndexNote(db, n); err != nil {
				logger.Warn("index: upsert failed", slog.String("uri", e.URI), slog.String("error", err.Error()))
			}
		case events.NoteDeleted:
			if err := db.DeleteNote(e.URI); err != nil {
				logger.Warn("index: delete failed", slog.String("uri", e.URI), slog.String("error", err.Error()))
			}
		}
	})
}
