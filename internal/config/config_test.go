package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `
version: "1.0"
metadata:
  name: "test registry"
  description: "test description"
  created: "2026-01-01"
  updated: "2026-01-02"
config:
  download_timeout: "90s"
  concurrency: 2
  storage:
    database_path: "test.db"
python:
  version: "3.12.9"
  variant: "static_mid"
  optimize: true
  jobs: 4
  packages: ["setuptools"]
  config_options: ["--disable-test-modules"]
  download:
    archive_template: "Python-{version}.tar.xz"
    url_template: "https://www.python.org/ftp/python/{version}/{archive}"
  verification:
    enabled: true
    methods:
      checksum:
        enabled: true
        algorithm: "sha256"
        file_pattern: "{url}.sha256"
      gpg:
        enabled: false
  endoflife:
    product_name: "python"
    check_eol: true
    warn_on_eol: true
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://www.openssl.org/source/old/1.1.1/{archive}"
    archive_template: "openssl-{version}.tar.gz"
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buildpy.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configData  string
		expectError bool
		errorMsg    string
	}{
		{
			name:       "valid config",
			configData: validConfig,
		},
		{
			name: "missing version",
			configData: `
python:
  version: "3.12.9"
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://example.com/{archive}"
`,
			expectError: true,
			errorMsg:    "version is required",
		},
		{
			name: "missing python version",
			configData: `
version: "1.0"
python:
  variant: "static_max"
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://example.com/{archive}"
`,
			expectError: true,
			errorMsg:    "python version is required",
		},
		{
			name: "unknown variant",
			configData: `
version: "1.0"
python:
  version: "3.12.9"
  variant: "static_huge"
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://example.com/{archive}"
`,
			expectError: true,
			errorMsg:    "unknown build variant",
		},
		{
			name: "no dependencies",
			configData: `
version: "1.0"
python:
  version: "3.12.9"
`,
			expectError: true,
			errorMsg:    "at least one dependency",
		},
		{
			name: "dependency missing url",
			configData: `
version: "1.0"
python:
  version: "3.12.9"
deps:
  openssl:
    version: "1.1.1w"
`,
			expectError: true,
			errorMsg:    "url_template is required",
		},
		{
			name: "checksum enabled without algorithm",
			configData: `
version: "1.0"
python:
  version: "3.12.9"
  verification:
    enabled: true
    methods:
      checksum:
        enabled: true
        file_pattern: "{url}.sha256"
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://example.com/{archive}"
`,
			expectError: true,
			errorMsg:    "checksum_algorithm is required",
		},
		{
			name: "gpg enabled without keyring",
			configData: `
version: "1.0"
python:
  version: "3.12.9"
  verification:
    enabled: true
    methods:
      gpg:
        enabled: true
        signature_pattern: "{url}.asc"
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://example.com/{archive}"
`,
			expectError: true,
			errorMsg:    "keyring_dir is required",
		},
		{
			name: "auto release without repository",
			configData: `
version: "1.0"
python:
  version: "3.12.9"
  release:
    auto_release: true
deps:
  openssl:
    version: "1.1.1w"
    url_template: "https://example.com/{archive}"
`,
			expectError: true,
			errorMsg:    "github_repository is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.configData)
			cfg, err := LoadConfig(path)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error = %v, want substring %q", err, tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg.Python.Version != "3.12.9" {
				t.Errorf("python version = %q", cfg.Python.Version)
			}
			if cfg.Global.GetConcurrency() != 2 {
				t.Errorf("concurrency = %d", cfg.Global.GetConcurrency())
			}
			if cfg.Global.Storage.DatabasePath != "test.db" {
				t.Errorf("database path = %q", cfg.Global.Storage.DatabasePath)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("err = %v", err)
	}
}

func TestDownloadTimeout(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "explicit", value: "90s", want: 90 * time.Second},
		{name: "empty defaults", value: "", want: 5 * time.Minute},
		{name: "invalid defaults", value: "soon", want: 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GlobalConfig{DownloadTimeout: tt.value}
			if got := g.GetDownloadTimeout(); got != tt.want {
				t.Errorf("GetDownloadTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetVersionExpandsShortVersions(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "short version expands", version: "3.12", want: "3.12.12"},
		{name: "full version passes through", version: "3.12.9", want: "3.12.9"},
		{name: "empty version defaults", version: "", want: DefaultPythonVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PythonTarget{Version: tt.version}
			if got := p.GetVersion(); got != tt.want {
				t.Errorf("GetVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, name := range []string{"openssl", "bzip2", "xz"} {
		if _, ok := cfg.GetDependency(name); !ok {
			t.Errorf("default config missing dependency %s", name)
		}
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := SaveConfig(DefaultConfig(), path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Python.GetVariant() != "shared_max" {
		t.Errorf("variant = %q", loaded.Python.GetVariant())
	}
	dep, ok := loaded.GetDependency("xz")
	if !ok {
		t.Fatal("xz dependency missing after round trip")
	}
	if dep.Version != "5.8.2" {
		t.Errorf("xz version = %q", dep.Version)
	}
}

func TestExpandTemplate(t *testing.T) {
	url := ExpandTemplate("https://www.python.org/ftp/python/{version}/{archive}", map[string]string{
		"version": "3.12.9",
		"archive": "Python-3.12.9.tar.xz",
	})
	want := "https://www.python.org/ftp/python/3.12.9/Python-3.12.9.tar.xz"
	if url != want {
		t.Errorf("ExpandTemplate = %q, want %q", url, want)
	}
}

func TestValidateDependencySentinels(t *testing.T) {
	d := Dependency{}
	if err := d.Validate(); !errors.Is(err, ErrDependencyVersionRequired) {
		t.Errorf("err = %v", err)
	}
	d.Version = "1.0.8"
	if err := d.Validate(); !errors.Is(err, ErrDependencyURLRequired) {
		t.Errorf("err = %v", err)
	}
}
