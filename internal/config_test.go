package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/hexokit/internal/imageservice"
	"github.com/starford/hexokit/internal/slug"
	pkgconfig "github.com/starford/hexokit/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestHexoConfig(t *testing.T) {
	cfg := HexoConfig{FrontMatterProperties: " title, tags ,", Renderer: slug.MarkdownItPlus}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid hexo config failed: %v", err)
	}
	props := cfg.Properties()
	if len(props) != 2 || props[0] != "title" || props[1] != "tags" {
		t.Errorf("properties = %q", props)
	}

	cfg.Renderer = "HexoRendererPandoc"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown renderer should fail validation")
	}
}

func TestImageServicesConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     ImageServicesConfig
		wantErr string
	}{
		{"empty", nil, ""},
		{"local", ImageServicesConfig{{Type: imageservice.TypeLocal, Name: "a"}}, ""},
		{"smms without key", ImageServicesConfig{{Type: imageservice.TypeSmms, Name: "s"}}, "APIKey"},
		{"unknown type", ImageServicesConfig{{Type: "Imgur", Name: "i"}}, "Type"},
		{"missing name", ImageServicesConfig{{Type: imageservice.TypeLocal}}, "Name"},
		{"duplicate", ImageServicesConfig{
			{Type: imageservice.TypeLocal, Name: "a"},
			{Type: imageservice.TypeSmms, Name: "a", APIKey: "k"},
		}, "duplicate name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestExportConfig_WatchRequiresDir(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Export.Watch = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("watch without dir should fail")
	}
	cfg.Export.Dir = "./public"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("watch with dir should pass: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("HEXOKIT_TEST_SMMS", "envkey")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
vault:
  path: /tmp/vault
hexo:
  front_matter_properties: "title,date"
  renderer: HexoRendererMarkdownItPlus
image_services:
  - type: Smms
    name: smms
    api_key: ${HEXOKIT_TEST_SMMS}
  - type: Local
    name: local
    file_path: /img/
export:
  dir: ./public
  watch: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Vault.Path != "/tmp/vault" || cfg.App.HTTP.Port != 8080 {
		t.Errorf("vault = %q, port = %d", cfg.Vault.Path, cfg.App.HTTP.Port)
	}
	if len(cfg.ImageServices) != 2 || cfg.ImageServices[0].APIKey != "envkey" {
		t.Errorf("image services = %+v", cfg.ImageServices)
	}
	if cfg.Hexo.Renderer != slug.MarkdownItPlus || !cfg.Export.Watch {
		t.Errorf("hexo = %+v, export = %+v", cfg.Hexo, cfg.Export)
	}
}
