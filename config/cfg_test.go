package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}

	if cfg.Document.FallbackStyle == "" {
		t.Error("Default config has no fallback style")
	}

	if cfg.Document.Page.Height <= 0 || cfg.Document.Page.Width <= 0 {
		t.Errorf("Default page geometry %gx%g is not positive", cfg.Document.Page.Width, cfg.Document.Page.Height)
	}

	if cfg.Document.Page.StartPage < 1 {
		t.Errorf("Default start page = %d, want at least 1", cfg.Document.Page.StartPage)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
document:
  output_name_template: "{{.Title}}"
  file_name_transliterate: true
  fallback_style: paragraph
  images:
    use_broken: true
    optimize: true
    max_width: 1200
  page:
    width: 600
    height: 800
    margins:
      top: 40
      bottom: 40
      left: 30
      right: 30
    start_page: 3
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}

	if !cfg.Document.FileNameTransliterate {
		t.Error("Expected FileNameTransliterate to be true")
	}

	if cfg.Document.Images.MaxWidth != 1200 {
		t.Errorf("Images.MaxWidth = %d, want 1200", cfg.Document.Images.MaxWidth)
	}

	if cfg.Document.Page.Height != 800 {
		t.Errorf("Page.Height = %g, want 800", cfg.Document.Page.Height)
	}

	if cfg.Document.Page.Margins.Left != 30 {
		t.Errorf("Page.Margins.Left = %g, want 30", cfg.Document.Page.Margins.Left)
	}

	if cfg.Document.Page.StartPage != 3 {
		t.Errorf("Page.StartPage = %d, want 3", cfg.Document.Page.StartPage)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `version: 1
document:
  fallback_style: paragraph
  invalid indent
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	configWithUnknown := `version: 1
unknown_field: value
document:
  fallback_style: paragraph
`

	if err := os.WriteFile(configPath, []byte(configWithUnknown), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tmpDir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"zero page height", `version: 1
document:
  fallback_style: paragraph
  page:
    width: 600
    height: 0
    start_page: 1
`},
		{"negative margin", `version: 1
document:
  fallback_style: paragraph
  page:
    width: 600
    height: 800
    margins:
      top: -5
    start_page: 1
`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, strings.ReplaceAll(c.name, " ", "_")+".yaml")
			if err := os.WriteFile(configPath, []byte(c.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	// Verify it's valid YAML by trying to unmarshal
	cfg := &Config{}
	_, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	if !strings.Contains(string(data), "fallback_style") {
		t.Error("Dumped configuration is missing document section")
	}

	roundTrip := &Config{}
	if _, err := unmarshalConfig(data, roundTrip, false); err != nil {
		t.Errorf("Dumped config does not parse back: %v", err)
	}
}
