// Package config provides configuration management for the python build
// system. It handles the YAML build registry: the target interpreter, the
// statically linked dependencies, download verification, and release
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/buildpy-dev/buildpy/internal/pyconfig"
)

// Sentinel errors for configuration validation
var (
	ErrVersionRequired           = errors.New("version is required")
	ErrPythonVersionRequired     = errors.New("python version is required")
	ErrNoDependencies            = errors.New("at least one dependency must be configured")
	ErrDependencyVersionRequired = errors.New("dependency version is required")
	ErrDependencyURLRequired     = errors.New("dependency url_template is required")
	ErrChecksumAlgorithmRequired = errors.New("checksum_algorithm is required when checksum is enabled")
	ErrChecksumPatternRequired   = errors.New("checksum_pattern is required when checksum is enabled")
	ErrKeyringRequired           = errors.New("keyring_dir is required when gpg is enabled")
	ErrSignaturePatternRequired  = errors.New("signature_pattern is required when gpg is enabled")
	ErrClamAVImageRequired       = errors.New("clamav image is required when clamav is enabled")
	ErrRepositoryRequired        = errors.New("github_repository is required when auto_release is enabled")
)

// DefaultPythonVersion is built when no version is given on the command line
// or in the registry.
const DefaultPythonVersion = "3.13.11"

// DefaultPythonVersions maps a short version to the latest patch release the
// build recipes are known to work with.
var DefaultPythonVersions = map[string]string{
	"3.14": "3.14.2",
	"3.13": "3.13.11",
	"3.12": "3.12.12",
	"3.11": "3.11.14",
}

// Config represents the top-level configuration structure.
type Config struct {
	Version  string                `yaml:"version"`
	Metadata Metadata              `yaml:"metadata"`
	Global   GlobalConfig          `yaml:"config"`
	Python   PythonTarget          `yaml:"python"`
	Deps     map[string]Dependency `yaml:"deps"`
}

// Metadata represents metadata about the configuration.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Created     string `yaml:"created"`
	Updated     string `yaml:"updated"`
}

// StorageConfig represents storage configuration for build tracking.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// GlobalConfig represents global configuration settings.
type GlobalConfig struct {
	DownloadTimeout string        `yaml:"download_timeout"`
	Concurrency     int           `yaml:"concurrency"`
	Storage         StorageConfig `yaml:"storage"`
	KeepFile        string        `yaml:"keep_file"` // Path to JSON file listing modules the reducer must keep
}

// GetDownloadTimeout parses and returns the download timeout duration
func (g *GlobalConfig) GetDownloadTimeout() time.Duration {
	if g.DownloadTimeout == "" {
		return 5 * time.Minute // Default timeout
	}
	timeout, err := time.ParseDuration(g.DownloadTimeout)
	if err != nil {
		return 5 * time.Minute // Default on parse error
	}
	return timeout
}

// GetConcurrency returns the download concurrency, defaulting to 4.
func (g *GlobalConfig) GetConcurrency() int {
	if g.Concurrency < 1 {
		return 4
	}
	return g.Concurrency
}

// PythonTarget represents the interpreter build target.
type PythonTarget struct {
	Version       string          `yaml:"version"`
	Variant       string          `yaml:"variant"`
	Optimize      bool            `yaml:"optimize"`
	Debug         bool            `yaml:"debug"`
	Precompile    bool            `yaml:"precompile"`
	Jobs          int             `yaml:"jobs"`
	Packages      []string        `yaml:"packages"`
	ConfigOptions []string        `yaml:"config_options"`
	Download      DownloadConfig  `yaml:"download"`
	Verification  Verification    `yaml:"verification"`
	EndOfLife     EndOfLifeConfig `yaml:"endoflife"`
	Release       ReleaseConfig   `yaml:"release"`
}

// GetVersion resolves the target version, expanding short versions such as
// 3.12 through the known patch-release table.
func (p *PythonTarget) GetVersion() string {
	if p.Version == "" {
		return DefaultPythonVersion
	}
	if full, ok := DefaultPythonVersions[p.Version]; ok {
		return full
	}
	return p.Version
}

// GetVariant returns the configured build variant or the default.
func (p *PythonTarget) GetVariant() string {
	if p.Variant == "" {
		return "shared_max"
	}
	return p.Variant
}

// Dependency represents a statically linked build dependency such as openssl.
type Dependency struct {
	Version         string `yaml:"version"`
	RepoURL         string `yaml:"repo_url"`
	ArchiveTemplate string `yaml:"archive_template"`
	URLTemplate     string `yaml:"url_template"`
}

// DownloadConfig represents source download configuration.
type DownloadConfig struct {
	ArchiveTemplate string `yaml:"archive_template"`
	URLTemplate     string `yaml:"url_template"`
	UserAgent       string `yaml:"user_agent"`
}

// EndOfLifeConfig represents endoflife integration configuration.
type EndOfLifeConfig struct {
	ProductName string `yaml:"product_name"`
	CheckEOL    bool   `yaml:"check_eol"`
	WarnOnEOL   bool   `yaml:"warn_on_eol"`
}

// ReleaseConfig represents GitHub release configuration for built artifacts.
type ReleaseConfig struct {
	AutoRelease         bool   `yaml:"auto_release"`          // Enable automatic GitHub release creation
	GitHubRepository    string `yaml:"github_repository"`     // Repository in "owner/repo" format
	DraftRelease        bool   `yaml:"draft_release"`         // Create as draft (default: false)
	ReleaseNameTemplate string `yaml:"release_name_template"` // e.g., "Python {version}"
}

// Verification represents verification configuration for source downloads.
type Verification struct {
	Enabled bool                `yaml:"enabled"`
	Methods VerificationMethods `yaml:"methods"`
}

// VerificationMethods represents different verification methods.
type VerificationMethods struct {
	Checksum ChecksumVerification `yaml:"checksum"`
	GPG      GPGVerification      `yaml:"gpg"`
	ClamAV   ClamAVVerification   `yaml:"clamav"`
}

// ChecksumVerification represents checksum verification configuration.
type ChecksumVerification struct {
	Enabled     bool   `yaml:"enabled"`
	Algorithm   string `yaml:"algorithm"`
	FilePattern string `yaml:"file_pattern"`
}

// GPGVerification represents GPG signature verification configuration.
type GPGVerification struct {
	Enabled          bool   `yaml:"enabled"`
	KeyringDir       string `yaml:"keyring_dir"`
	SignaturePattern string `yaml:"signature_pattern"`
}

// ClamAVVerification represents ClamAV malware scanning configuration.
type ClamAVVerification struct {
	Enabled           bool   `yaml:"enabled"`
	Image             string `yaml:"image"` // Docker image, e.g., "clamav/clamav-debian:latest"
	DeleteOnDetection bool   `yaml:"delete_on_detection"`
}

// LoadConfig loads and parses the build registry from a YAML file.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate validates the configuration structure and required fields.
func (c *Config) Validate() error {
	if c.Version == "" {
		return ErrVersionRequired
	}
	if err := c.Python.Validate(); err != nil {
		return fmt.Errorf("python: %w", err)
	}
	if len(c.Deps) == 0 {
		return ErrNoDependencies
	}
	for name, dep := range c.Deps {
		if err := dep.Validate(); err != nil {
			return fmt.Errorf("dependency %s: %w", name, err)
		}
	}
	return nil
}

// Validate validates the interpreter target configuration.
func (p *PythonTarget) Validate() error {
	if p.Version == "" {
		return ErrPythonVersionRequired
	}
	if _, _, err := pyconfig.SplitVariant(p.GetVariant()); err != nil {
		return err
	}
	if err := p.Verification.Validate(); err != nil {
		return fmt.Errorf("verification: %w", err)
	}
	if p.Release.AutoRelease && p.Release.GitHubRepository == "" {
		return ErrRepositoryRequired
	}
	return nil
}

// Validate validates a dependency configuration.
func (d *Dependency) Validate() error {
	if d.Version == "" {
		return ErrDependencyVersionRequired
	}
	if d.URLTemplate == "" {
		return ErrDependencyURLRequired
	}
	return nil
}

// Validate validates verification configuration.
func (v *Verification) Validate() error {
	if v.Methods.Checksum.Enabled {
		if v.Methods.Checksum.Algorithm == "" {
			return ErrChecksumAlgorithmRequired
		}
		if v.Methods.Checksum.FilePattern == "" {
			return ErrChecksumPatternRequired
		}
	}
	if v.Methods.GPG.Enabled {
		if v.Methods.GPG.KeyringDir == "" {
			return ErrKeyringRequired
		}
		if v.Methods.GPG.SignaturePattern == "" {
			return ErrSignaturePatternRequired
		}
	}
	if v.Methods.ClamAV.Enabled {
		if v.Methods.ClamAV.Image == "" {
			return ErrClamAVImageRequired
		}
	}
	return nil
}

// GetDependency returns the configuration for a named dependency.
func (c *Config) GetDependency(name string) (Dependency, bool) {
	dep, exists := c.Deps[name]
	return dep, exists
}

// DefaultConfig returns a default configuration matching the stock recipes.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Metadata: Metadata{
			Name:        "buildpy registry",
			Description: "python build targets and dependency sources",
		},
		Global: GlobalConfig{
			DownloadTimeout: "5m",
			Concurrency:     4,
			Storage:         StorageConfig{DatabasePath: "buildpy.db"},
		},
		Python: PythonTarget{
			Version:    DefaultPythonVersion,
			Variant:    "shared_max",
			Precompile: true,
			Jobs:       1,
			ConfigOptions: []string{
				"--disable-test-modules",
			},
			Download: DownloadConfig{
				ArchiveTemplate: "Python-{version}.tar.xz",
				URLTemplate:     "https://www.python.org/ftp/python/{version}/{archive}",
			},
			Verification: Verification{
				Enabled: true,
				Methods: VerificationMethods{
					Checksum: ChecksumVerification{
						Enabled:     true,
						Algorithm:   "sha256",
						FilePattern: "{url}.sha256",
					},
					GPG: GPGVerification{
						Enabled:          false,
						KeyringDir:       "keys",
						SignaturePattern: "{url}.asc",
					},
				},
			},
			EndOfLife: EndOfLifeConfig{
				ProductName: "python",
				CheckEOL:    true,
				WarnOnEOL:   true,
			},
		},
		Deps: map[string]Dependency{
			"openssl": {
				Version:         "1.1.1w",
				RepoURL:         "https://github.com/openssl/openssl.git",
				ArchiveTemplate: "openssl-{version}.tar.gz",
				URLTemplate:     "https://www.openssl.org/source/old/1.1.1/{archive}",
			},
			"bzip2": {
				Version:         "1.0.8",
				RepoURL:         "https://github.com/libarchive/bzip2.git",
				ArchiveTemplate: "bzip2-{version}.tar.gz",
				URLTemplate:     "https://sourceware.org/pub/bzip2/{archive}",
			},
			"xz": {
				Version:         "5.8.2",
				RepoURL:         "https://github.com/tukaani-project/xz.git",
				ArchiveTemplate: "xz-{version}.tar.gz",
				URLTemplate:     "https://github.com/tukaani-project/xz/releases/download/v{version}/xz-{version}.tar.gz",
			},
		},
	}
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filePath, err)
	}
	return nil
}

// ExpandTemplate substitutes {version}, {archive}, and {url} placeholders in
// download templates.
func ExpandTemplate(template string, vars map[string]string) string {
	out := template
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out
}
