package imageservice

import (
	"context"
	"strings"

	"github.com/starford/hexokit/internal/models"
)

// Local rewrites embeds to a fixed URL prefix without any I/O.
// The images are expected to be published alongside the site.
type Local struct {
	cfg Config
}

func (s *Local) Title() string { return s.cfg.FullName() }

func (s *Local) Handle(_ context.Context, m *models.LinkMatch) models.UploadResult {
	if m.File == nil {
		return wrongFile(m)
	}
	url := strings.TrimSpace(s.cfg.FilePath) + m.File.Name
	return models.UploadResult{ReplacedText: ImageHTML(url, m)}
}
