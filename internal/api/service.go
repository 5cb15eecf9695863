package api

import (
	"context"

	"github.com/starford/hexokit/internal/history"
	"github.com/starford/hexokit/internal/models"
)

// Converter is the conversion session behind the API.
type Converter interface {
	Convert(ctx context.Context, path string) (*models.Run, error)
	Status() (models.RunStatus, *models.Run)
	Last() (*models.Run, bool)
}

// History serves finished runs.
type History interface {
	GetRun(id string) (*models.Run, error)
	LastRun() (*models.Run, error)
	ListRuns(limit, offset int, path string) ([]history.Summary, int, error)
}

// Notes lists the vault's markdown notes.
type Notes interface {
	List(dir string) ([]models.NoteMetadata, error)
}

// Service bundles what the handlers need.
type Service struct {
	Converter Converter
	History   History
	Notes     Notes
	// ExportDir holds converted notes served under /exports. Empty disables it.
	ExportDir string
}
