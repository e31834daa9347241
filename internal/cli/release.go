// Package cli provides release publishing integrated with the build command.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/fetch"
	"github.com/buildpy-dev/buildpy/internal/platform"
	"github.com/buildpy-dev/buildpy/internal/shell"
	"github.com/buildpy-dev/buildpy/internal/storage"
)

// BuildArtifact describes a completed build ready for publishing.
type BuildArtifact struct {
	Version string // e.g. 3.13.11
	Variant string // e.g. shared_max
	Host    platform.Host
	Prefix  string // install tree to package
	// ManifestPath points at a reduction manifest to attach, when one was
	// applied to this build.
	ManifestPath string
}

// ReleaseTag returns the per-build release tag, e.g. python-3.13.11-shared_max.
func (a BuildArtifact) ReleaseTag() string {
	return fmt.Sprintf("python-%s-%s", a.Version, a.Variant)
}

// ArchiveName returns the artifact archive filename for this host.
func (a BuildArtifact) ArchiveName() string {
	return fmt.Sprintf("python-%s-%s-%s.zip", a.Version, a.Variant, a.Host.Classifier())
}

// Publisher handles the GitHub release process for completed builds.
// It accepts interfaces for testability (Dave Cheney's "accept interfaces,
// return structs").
type Publisher struct {
	db     DatabaseStore
	github GitHubReleaser
	stdout *slog.Logger
	stderr *slog.Logger
}

// NewPublisher creates a publisher with the provided dependencies.
// Returns nil if auto_release is disabled in the configuration.
func NewPublisher(cfg *config.ReleaseConfig, github GitHubReleaser, db DatabaseStore, stdout, stderr *slog.Logger) (*Publisher, error) {
	if !cfg.AutoRelease {
		return nil, nil // Release disabled
	}
	if cfg.GitHubRepository == "" {
		return nil, fmt.Errorf("github_repository is required when auto_release is enabled")
	}
	if github == nil {
		return nil, fmt.Errorf("github client is required when auto_release is enabled")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required when auto_release is enabled")
	}
	return &Publisher{
		db:     db,
		github: github,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// Publish packages the build tree, creates (or reuses) the GitHub release
// for this version and variant, uploads the artifacts, and records the
// release in the database. workDir holds the staged archive files.
func (p *Publisher) Publish(art BuildArtifact, cfg *config.ReleaseConfig, workDir string) (*storage.Release, error) {
	if _, err := os.Stat(art.Prefix); err != nil {
		return nil, fmt.Errorf("build tree not found at %s: %w", art.Prefix, err)
	}

	p.stdout.Info("packaging build for release",
		"version", art.Version, "variant", art.Variant, "prefix", art.Prefix)

	archivePath := filepath.Join(workDir, art.ArchiveName())
	if err := shell.ZipDir(art.Prefix, archivePath); err != nil {
		return nil, fmt.Errorf("failed to package build tree: %w", err)
	}

	digest, err := fetch.ComputeChecksum(archivePath, "sha256")
	if err != nil {
		return nil, err
	}
	checksumPath := archivePath + ".sha256"
	checksumLine := fmt.Sprintf("%s  %s\n", digest, art.ArchiveName())
	if err := os.WriteFile(checksumPath, []byte(checksumLine), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write checksum file: %w", err)
	}

	tag := art.ReleaseTag()
	name := formatReleaseName(cfg.ReleaseNameTemplate, art.Version, art.Variant)
	body := p.releaseBody(art, digest)

	ghRelease, created, err := p.github.EnsureRelease(tag, name, body, cfg.DraftRelease)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure GitHub release: %w", err)
	}
	releaseURL := p.github.GetReleaseURL(ghRelease)
	p.stdout.Info("github release ready", "tag", tag, "url", releaseURL, "created", created)

	uploads := []string{archivePath, checksumPath}
	if art.ManifestPath != "" {
		uploads = append(uploads, art.ManifestPath)
	}
	assets, err := p.github.UploadAssets(ghRelease.GetID(), uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to upload artifacts: %w", err)
	}
	p.stdout.Info("artifacts uploaded", "count", len(assets))

	artifactsJSON, err := p.buildArtifactsJSON(art, uploads, assets, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to build artifacts JSON: %w", err)
	}

	major, minor, patch, err := storage.ParseSemver(art.Version)
	if err != nil {
		major, minor, patch = 0, 0, 0
	}
	release := &storage.Release{
		Version:     art.Version,
		Variant:     art.Variant,
		SemverMajor: major,
		SemverMinor: minor,
		SemverPatch: patch,
		ReleaseTag:  tag,
		ReleaseURL:  releaseURL,
		Artifacts:   artifactsJSON,
		CreatedAt:   time.Now(),
	}
	if err := p.db.CreateRelease(release); err != nil {
		return nil, fmt.Errorf("failed to record release in database: %w", err)
	}
	p.stdout.Info("release recorded to database", "id", release.ID, "tag", tag)
	return release, nil
}

// formatReleaseName generates the release name from the configured template.
func formatReleaseName(template, version, variant string) string {
	if template == "" {
		return fmt.Sprintf("%s %s (%s)",
			cases.Title(language.English).String("python"), version, variant)
	}
	name := strings.ReplaceAll(template, "{version}", version)
	name = strings.ReplaceAll(name, "{variant}", variant)
	return name
}

// releaseBody creates the markdown body for the GitHub release.
func (p *Publisher) releaseBody(art BuildArtifact, digest string) string {
	var b strings.Builder
	title := cases.Title(language.English).String("python")
	fmt.Fprintf(&b, "# %s %s\n\n", title, art.Version)
	b.WriteString("Relocatable python build produced from verified upstream sources.\n\n")
	b.WriteString("## Build\n\n")
	fmt.Fprintf(&b, "- Variant: %s\n", art.Variant)
	fmt.Fprintf(&b, "- Platform: %s\n", art.Host.Classifier())
	fmt.Fprintf(&b, "- Archive: %s\n", art.ArchiveName())
	fmt.Fprintf(&b, "- SHA256: `%s`\n", digest)
	if art.ManifestPath != "" {
		fmt.Fprintf(&b, "- Reduction manifest: %s\n", filepath.Base(art.ManifestPath))
	}
	b.WriteString("\n## Verification\n\n")
	b.WriteString("The source archive was checksum verified before building.\n")
	return b.String()
}

// buildArtifactsJSON creates the JSON blob stored alongside the release record.
func (p *Publisher) buildArtifactsJSON(art BuildArtifact, files []string, assets []*github.ReleaseAsset, digest string) (string, error) {
	urls := make(map[string]string, len(assets))
	for _, asset := range assets {
		urls[asset.GetName()] = p.github.GetAssetDownloadURL(asset)
	}

	now := time.Now()
	plat := storage.PlatformArtifact{
		Platform:     art.Host.Classifier(),
		PlatformOS:   art.Host.OS,
		PlatformArch: art.Host.Arch,
	}

	var totalSize int64
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		file := &storage.ArtifactFile{
			Filename:   filepath.Base(path),
			Size:       info.Size(),
			URL:        urls[filepath.Base(path)],
			UploadedAt: now,
		}
		totalSize += info.Size()
		switch {
		case strings.HasSuffix(path, ".zip"):
			file.SHA256 = digest
			plat.Archive = file
		case strings.HasSuffix(path, ".json"):
			plat.Manifest = file
		}
	}

	artifacts := storage.ReleaseArtifacts{
		Platforms: []storage.PlatformArtifact{plat},
		CommonFiles: []storage.CommonFile{{
			Type:       "checksum_file",
			Filename:   art.ArchiveName() + ".sha256",
			URL:        urls[art.ArchiveName()+".sha256"],
			UploadedAt: now,
		}},
		Metadata: storage.ArtifactsMetadata{
			TotalArtifacts: len(files),
			TotalSizeBytes: totalSize,
			PlatformCount:  1,
		},
	}
	data, err := json.Marshal(artifacts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
