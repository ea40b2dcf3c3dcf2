// Package storage keeps note files in a flat notes directory.
package storage

import (
	"time"

	"github.com/starford/notecore/internal/models"
)

// Provider is the interface for note file operations. Paths are relative to
// the notes directory.
type Provider interface {
	// List returns every .note file directly under the notes directory.
	List() ([]models.NoteFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write replaces the file at path, keeping the previous content until the
	// new one is in place.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Backup moves the file at path into dir, which may lie outside the notes
	// directory.
	Backup(path, dir string) error
	// ModTime returns the last modification time of the file at path.
	ModTime(path string) (time.Time, error)
	// Exists reports whether path names an existing file.
	Exists(path string) bool
	// Import copies an outside file into the notes directory as name.
	Import(src, name string) error
}
