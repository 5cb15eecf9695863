// Package storage gives root-confined file access to the vault and to the
// export directory.
package storage

import "github.com/starford/hexokit/internal/models"

// Provider is a directory tree addressed by slash-separated relative paths.
type Provider interface {
	// List returns metadata for the notes (.md files) under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Files returns every file under dir, notes and attachments alike.
	Files(dir string) ([]string, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically, creating parent directories.
	Write(path string, content []byte) error
	Delete(path string) error
	// Root returns the absolute directory the paths are relative to.
	Root() string
}
