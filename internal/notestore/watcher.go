package notestore

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notecore/internal/checksum"
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/storage"
)

// ChangeCallback is called after a watcher-driven store change.
// kind is one of "created", "updated", "deleted".
type ChangeCallback func(kind, uri string)

// Watch follows the notes directory at dir and applies note files written,
// created or removed by other processes until ctx is cancelled. Writes made
// by the store itself are recognized by checksum and skipped. Every change
// runs under Exec.
//
// Rename events trigger a reconciliation pass that compares the directory
// listing with the store.
func (s *Store) Watch(ctx context.Context, dir string, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	s.logger.Info("watcher: started", slog.String("root", dir))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	notify := func(kind, uri string) {
		if cb != nil && kind != "" {
			cb(kind, uri)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			_ = s.Exec(func() error {
				for _, ch := range s.reconcile() {
					notify(ch.kind, ch.uri)
				}
				return nil
			})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != storage.NoteExt {
				continue
			}
			rel := filepath.Base(ev.Name)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				var kind, uri string
				_ = s.Exec(func() error {
					kind, uri = s.reloadFile(rel)
					return nil
				})
				notify(kind, uri)

			case ev.Op&fsnotify.Remove != 0:
				var uri string
				_ = s.Exec(func() error {
					uri = s.dropFile(rel)
					return nil
				})
				if uri != "" {
					notify("deleted", uri)
				}

			case ev.Op&fsnotify.Rename != 0:
				// The new name, if any, arrives as its own Create event.
				var uri string
				_ = s.Exec(func() error {
					uri = s.dropFile(rel)
					return nil
				})
				if uri != "" {
					notify("deleted", uri)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reloadFile brings the note stored at path in line with the file. It returns
// what happened, or an empty kind when the file holds content the store
// already knows.
func (s *Store) reloadFile(path string) (kind, uri string) {
	data, err := s.files.Provider.Read(path)
	if err != nil {
		s.logger.Warn("watcher: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return "", ""
	}
	sum := checksum.Sum(data)
	if s.files.known(path, sum) {
		return "", ""
	}

	if n, ok := s.findByPath(path); ok {
		if err := n.Reload(); err != nil {
			s.logger.Warn("watcher: reload failed",
				slog.String("path", path),
				slog.String("uri", n.URI()),
				slog.String("error", err.Error()))
			return "", ""
		}
		s.logger.Debug("watcher: reloaded", slog.String("uri", n.URI()))
		return "updated", n.URI()
	}

	n, err := note.Load(s.env, path)
	if err != nil {
		s.logger.Warn("watcher: load failed", slog.String("path", path), slog.String("error", err.Error()))
		return "", ""
	}
	if _, taken := s.Find(n.Title()); taken {
		s.logger.Warn("watcher: title already in use, note ignored",
			slog.String("path", path),
			slog.String("title", n.Title()))
		n.Delete()
		s.files.forget(path)
		return "", ""
	}
	s.addNote(n)
	s.logger.Debug("watcher: loaded", slog.String("uri", n.URI()))
	return "created", n.URI()
}

// dropFile removes the note stored at path from the store after its file
// went away. It returns the note uri, or "" when no note was stored there.
func (s *Store) dropFile(path string) string {
	if s.files.Exists(path) {
		return ""
	}
	n, ok := s.findByPath(path)
	if !ok {
		return ""
	}
	s.files.forget(path)
	s.removeNote(n)
	return n.URI()
}

type fileChange struct {
	kind string
	uri  string
}

// reconcile loads note files the store lacks and drops notes whose file is gone.
func (s *Store) reconcile() []fileChange {
	list, err := s.files.List()
	if err != nil {
		s.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return nil
	}
	disk := make(map[string]string, len(list))
	for _, f := range list {
		disk[f.Path] = f.Checksum
	}

	var changes []fileChange
	for _, n := range s.Notes() {
		if _, ok := disk[n.Path()]; ok {
			continue
		}
		s.files.forget(n.Path())
		s.removeNote(n)
		changes = append(changes, fileChange{kind: "deleted", uri: n.URI()})
	}
	for path, sum := range disk {
		if s.files.known(path, sum) {
			continue
		}
		if kind, uri := s.reloadFile(path); kind != "" {
			changes = append(changes, fileChange{kind: kind, uri: uri})
		}
	}
	return changes
}
