package cli

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/platform"
	"github.com/buildpy-dev/buildpy/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testArtifact(t *testing.T) BuildArtifact {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "python-shared")
	for _, dir := range []string{"bin", "lib"} {
		if err := os.MkdirAll(filepath.Join(prefix, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(prefix, "bin", "python3"), []byte("#!fake\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return BuildArtifact{
		Version: "3.13.11",
		Variant: "shared_max",
		Host:    platform.Host{OS: "linux", Arch: "x64"},
		Prefix:  prefix,
	}
}

func TestBuildArtifactNames(t *testing.T) {
	art := BuildArtifact{
		Version: "3.13.11",
		Variant: "shared_max",
		Host:    platform.Host{OS: "darwin", Arch: "aarch64"},
	}
	if got := art.ReleaseTag(); got != "python-3.13.11-shared_max" {
		t.Errorf("ReleaseTag() = %q", got)
	}
	if got := art.ArchiveName(); got != "python-3.13.11-shared_max-darwin-aarch64.zip" {
		t.Errorf("ArchiveName() = %q", got)
	}
}

func TestNewPublisher(t *testing.T) {
	gh := &mockGitHubReleaser{}
	db := &mockDatabaseStore{}
	tests := []struct {
		name    string
		cfg     config.ReleaseConfig
		github  GitHubReleaser
		db      DatabaseStore
		wantNil bool
		wantErr bool
	}{
		{
			name:    "disabled returns nil",
			cfg:     config.ReleaseConfig{AutoRelease: false},
			github:  gh,
			db:      db,
			wantNil: true,
		},
		{
			name:    "missing repository",
			cfg:     config.ReleaseConfig{AutoRelease: true},
			github:  gh,
			db:      db,
			wantErr: true,
		},
		{
			name:    "missing github client",
			cfg:     config.ReleaseConfig{AutoRelease: true, GitHubRepository: "owner/repo"},
			db:      db,
			wantErr: true,
		},
		{
			name:    "missing database",
			cfg:     config.ReleaseConfig{AutoRelease: true, GitHubRepository: "owner/repo"},
			github:  gh,
			wantErr: true,
		},
		{
			name:   "fully configured",
			cfg:    config.ReleaseConfig{AutoRelease: true, GitHubRepository: "owner/repo"},
			github: gh,
			db:     db,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPublisher(&tt.cfg, tt.github, tt.db, discardLogger(), discardLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil != (p == nil) {
				t.Errorf("publisher nil = %v, want %v", p == nil, tt.wantNil)
			}
		})
	}
}

func TestPublish(t *testing.T) {
	art := testArtifact(t)
	gh := &mockGitHubReleaser{}
	db := &mockDatabaseStore{}
	cfg := &config.ReleaseConfig{
		AutoRelease:      true,
		GitHubRepository: "owner/repo",
	}
	p, err := NewPublisher(cfg, gh, db, discardLogger(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	workDir := t.TempDir()
	release, err := p.Publish(art, cfg, workDir)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if release.ReleaseTag != "python-3.13.11-shared_max" {
		t.Errorf("release tag = %q", release.ReleaseTag)
	}
	if release.SemverMajor != 3 || release.SemverMinor != 13 || release.SemverPatch != 11 {
		t.Errorf("semver = %d.%d.%d", release.SemverMajor, release.SemverMinor, release.SemverPatch)
	}
	if len(gh.ensuredTags) != 1 || gh.ensuredTags[0] != "python-3.13.11-shared_max" {
		t.Errorf("ensured tags = %v", gh.ensuredTags)
	}

	// Archive plus checksum sidecar must exist in the working directory.
	archive := filepath.Join(workDir, art.ArchiveName())
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	checksumData, err := os.ReadFile(archive + ".sha256")
	if err != nil {
		t.Fatalf("checksum sidecar missing: %v", err)
	}
	if !strings.Contains(string(checksumData), art.ArchiveName()) {
		t.Errorf("checksum line = %q", checksumData)
	}
	if len(gh.uploadedPaths) != 2 {
		t.Errorf("uploaded %d files, want 2", len(gh.uploadedPaths))
	}

	// The stored artifacts blob must decode and name the platform archive.
	var artifacts storage.ReleaseArtifacts
	if err := json.Unmarshal([]byte(release.Artifacts), &artifacts); err != nil {
		t.Fatalf("artifacts JSON invalid: %v", err)
	}
	if len(artifacts.Platforms) != 1 {
		t.Fatalf("platforms = %d", len(artifacts.Platforms))
	}
	plat := artifacts.Platforms[0]
	if plat.Platform != "linux-x64" {
		t.Errorf("platform = %q", plat.Platform)
	}
	if plat.Archive == nil || plat.Archive.Filename != art.ArchiveName() {
		t.Errorf("archive artifact = %+v", plat.Archive)
	}
	if plat.Archive.SHA256 == "" {
		t.Error("archive artifact missing sha256")
	}

	stored, err := db.GetRelease("3.13.11", "shared_max")
	if err != nil {
		t.Fatalf("release not recorded: %v", err)
	}
	if stored.ReleaseURL == "" {
		t.Error("recorded release has no URL")
	}
}

func TestPublishIncludesManifest(t *testing.T) {
	art := testArtifact(t)
	manifest := filepath.Join(t.TempDir(), "reduction.json")
	if err := os.WriteFile(manifest, []byte(`{"remove_stdlib":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	art.ManifestPath = manifest

	gh := &mockGitHubReleaser{}
	db := &mockDatabaseStore{}
	cfg := &config.ReleaseConfig{AutoRelease: true, GitHubRepository: "owner/repo"}
	p, err := NewPublisher(cfg, gh, db, discardLogger(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	release, err := p.Publish(art, cfg, t.TempDir())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(gh.uploadedPaths) != 3 {
		t.Errorf("uploaded %d files, want 3", len(gh.uploadedPaths))
	}
	var artifacts storage.ReleaseArtifacts
	if err := json.Unmarshal([]byte(release.Artifacts), &artifacts); err != nil {
		t.Fatal(err)
	}
	if artifacts.Platforms[0].Manifest == nil {
		t.Error("manifest artifact not recorded")
	}
}

func TestPublishMissingBuildTree(t *testing.T) {
	gh := &mockGitHubReleaser{}
	db := &mockDatabaseStore{}
	cfg := &config.ReleaseConfig{AutoRelease: true, GitHubRepository: "owner/repo"}
	p, err := NewPublisher(cfg, gh, db, discardLogger(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	art := BuildArtifact{
		Version: "3.13.11",
		Variant: "shared_max",
		Host:    platform.Host{OS: "linux", Arch: "x64"},
		Prefix:  "/nonexistent/prefix",
	}
	if _, err := p.Publish(art, cfg, t.TempDir()); err == nil {
		t.Fatal("expected error for missing build tree")
	}
}

func TestPublishDatabaseFailure(t *testing.T) {
	art := testArtifact(t)
	gh := &mockGitHubReleaser{}
	db := &mockDatabaseStore{
		createReleaseFn: func(*storage.Release) error {
			return errors.New("disk full")
		},
	}
	cfg := &config.ReleaseConfig{AutoRelease: true, GitHubRepository: "owner/repo"}
	p, err := NewPublisher(cfg, gh, db, discardLogger(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Publish(art, cfg, t.TempDir()); err == nil {
		t.Fatal("expected error when database write fails")
	}
}

func TestFormatReleaseName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"default", "", "Python 3.13.11 (shared_max)"},
		{"custom template", "cpython {version} [{variant}]", "cpython 3.13.11 [shared_max]"},
		{"version only", "v{version}", "v3.13.11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatReleaseName(tt.template, "3.13.11", "shared_max"); got != tt.want {
				t.Errorf("formatReleaseName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReleaseBody(t *testing.T) {
	p := &Publisher{stdout: discardLogger(), stderr: discardLogger()}
	art := BuildArtifact{
		Version: "3.13.11",
		Variant: "static_mid",
		Host:    platform.Host{OS: "linux", Arch: "x64"},
	}
	body := p.releaseBody(art, "abc123")
	for _, want := range []string{
		"# Python 3.13.11",
		"static_mid",
		"linux-x64",
		"`abc123`",
		"## Verification",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("release body missing %q", want)
		}
	}
}
