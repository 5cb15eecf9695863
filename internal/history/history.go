package history

import "github.com/starford/hexokit/internal/models"

// Store persists finished conversions.
// Consumers should depend on this interface rather than the concrete *DB type.
type Store interface {
	SaveRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	LastRun() (*models.Run, error)
	ListRuns(limit, offset int, path string) ([]Summary, int, error)
	LastChecksum(path string) (string, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
