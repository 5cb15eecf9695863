package internal

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/hexokit/internal/convert"
	"github.com/starford/hexokit/internal/imageservice"
	"github.com/starford/hexokit/internal/slug"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App           ApplicationConfig   `yaml:"app"`
	Vault         VaultConfig         `yaml:"vault"`
	SQLite        SQLiteConfig        `yaml:"sqlite"`
	Auth          AuthConfig          `yaml:"auth"`
	Hexo          HexoConfig          `yaml:"hexo"`
	ImageServices ImageServicesConfig `yaml:"image_services"`
	Export        ExportConfig        `yaml:"export"`
	Clipboard     ClipboardConfig     `yaml:"clipboard"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Hexo.Validate(); err != nil {
		return err
	}
	if err := c.ImageServices.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Obsidian vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the conversion history database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// HexoConfig describes the target blog.
type HexoConfig struct {
	// FrontMatterProperties is the comma separated allow-list of front matter keys.
	FrontMatterProperties string      `yaml:"front_matter_properties"`
	Renderer              slug.Flavor `yaml:"renderer"`
}

// Validate validates the Hexo configuration.
func (c *HexoConfig) Validate() error {
	flavors := make([]any, 0, len(slug.Flavors))
	for _, f := range slug.Flavors {
		flavors = append(flavors, f)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.FrontMatterProperties, validation.Required),
		validation.Field(&c.Renderer, validation.Required, validation.In(flavors...)),
	)
}

// Properties returns the parsed front matter allow-list.
func (c *HexoConfig) Properties() []string {
	return convert.ParseAllowList(c.FrontMatterProperties)
}

// ImageServicesConfig lists the image services. The first one is the default.
type ImageServicesConfig []imageservice.Config

// Validate checks every entry and that names are unique.
func (c ImageServicesConfig) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, s := range c {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("image_services[%d]: %w", i, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("image_services[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// ExportConfig controls writing converted notes to disk.
type ExportConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	if c.Watch && c.Dir == "" {
		return errors.New("export: watch requires dir")
	}
	return nil
}

// ClipboardConfig controls copying converted notes to the system clipboard.
type ClipboardConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./hexokit.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Hexo: HexoConfig{
			FrontMatterProperties: "title,date,updated,tags,categories",
			Renderer:              slug.Marked,
		},
		ImageServices: ImageServicesConfig{
			{Type: imageservice.TypeLocal, Name: "local", FilePath: "/images/"},
		},
		Clipboard: ClipboardConfig{
			Enabled: true,
		},
	}
}
