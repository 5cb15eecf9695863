// Package imageservice publishes embedded vault images and returns the
// <img> markup pointing at their published location.
package imageservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/net/html"

	"github.com/starford/hexokit/internal/models"
)

// Type selects an uploader implementation.
type Type string

const (
	TypeLocal Type = "Local"
	TypeSmms  Type = "Smms"
)

// Config is one named image-service entry.
type Config struct {
	Type     Type   `yaml:"type"`
	Name     string `yaml:"name"`
	FilePath string `yaml:"file_path"` // Local: URL prefix prepended to the file name
	APIKey   string `yaml:"api_key"`   // Smms
	BaseURL  string `yaml:"base_url"`  // Smms, defaults to DefaultSmmsBaseURL
}

// Validate checks the entry.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(TypeLocal, TypeSmms)),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.APIKey, validation.When(c.Type == TypeSmms, validation.Required)),
	)
}

// FullName is the "name (type)" label shown in reports.
func (c Config) FullName() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Type)
}

// Uploader publishes one embedded image.
type Uploader interface {
	// Handle returns the replacement markup for m, or an empty
	// ReplacedText together with the reasons it failed.
	Handle(ctx context.Context, m *models.LinkMatch) models.UploadResult
	Title() string
}

// BinaryReader reads the raw bytes of a vault file.
type BinaryReader interface {
	ReadBinary(f *models.File) ([]byte, error)
}

// Registry builds uploaders from the configured entries.
type Registry struct {
	configs []Config
	files   BinaryReader
	client  *http.Client
}

// Option configures a Registry.
type Option func(*Registry)

// WithBinaryReader sets the reader remote uploaders use for image bytes.
func WithBinaryReader(r BinaryReader) Option {
	return func(reg *Registry) { reg.files = r }
}

// WithHTTPClient overrides the client used by remote uploaders.
func WithHTTPClient(c *http.Client) Option {
	return func(reg *Registry) { reg.client = c }
}

// New creates a Registry. The first config is the default service.
func New(configs []Config, opts ...Option) *Registry {
	r := &Registry{
		configs: configs,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the uploader configured as name, falling back to the first
// entry when name is empty or unknown.
func (r *Registry) Get(name string) (Uploader, bool) {
	if len(r.configs) == 0 {
		return nil, false
	}
	cfg := r.configs[0]
	if name != "" {
		for _, c := range r.configs {
			if c.Name == name {
				cfg = c
				break
			}
		}
	}
	switch cfg.Type {
	case TypeLocal:
		return &Local{cfg: cfg}, true
	case TypeSmms:
		return newSmms(cfg, r.client, r.files), true
	}
	return nil, false
}

// Names lists the configured service titles in order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c.FullName())
	}
	return out
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"avif": "image/avif",
}

// ContentType maps an image extension (without dot) to its MIME type.
// Unknown extensions are reported as image/png.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "image/png"
}

// ImageHTML renders the <img> tag for a published image.
// Empty alt and zero sizes are omitted. Attribute values are HTML-escaped.
func ImageHTML(url string, m *models.LinkMatch) string {
	if url == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<img src="%s"`, html.EscapeString(url))
	if m.Alt != "" {
		fmt.Fprintf(&b, ` alt="%s"`, html.EscapeString(m.Alt))
	}
	if m.Width > 0 {
		fmt.Fprintf(&b, ` width="%d"`, m.Width)
	}
	if m.Height > 0 {
		fmt.Fprintf(&b, ` height="%d"`, m.Height)
	}
	fmt.Fprintf(&b, ` srcFile="%s">`, html.EscapeString(m.Src))
	return b.String()
}

func wrongFile(m *models.LinkMatch) models.UploadResult {
	return models.UploadResult{ErrorMessages: []string{"Wrong image file for " + m.MatchedText}}
}
