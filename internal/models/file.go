// Package models defines the domain types shared by the conversion pipeline.
package models

import (
	"path"
	"path/filepath"
	"strings"
	"time"
)

// File is a vault file resolved from a link target.
type File struct {
	Path      string `json:"path"`      // relative to vault root, forward slashes
	Name      string `json:"name"`      // base name with extension
	Basename  string `json:"basename"`  // base name without extension
	Extension string `json:"extension"` // lower-case, no leading dot
	FullPath  string `json:"full_path"` // absolute path on disk
}

// NewFile describes the vault file at rel under the vault directory root.
func NewFile(rel, root string) *File {
	rel = filepath.ToSlash(rel)
	name := path.Base(rel)
	ext := path.Ext(name)
	return &File{
		Path:      rel,
		Name:      name,
		Basename:  strings.TrimSuffix(name, ext),
		Extension: strings.ToLower(strings.TrimPrefix(ext, ".")),
		FullPath:  filepath.Join(root, filepath.FromSlash(rel)),
	}
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
