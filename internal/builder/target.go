// Package builder contains the build recipes for python and its bundled
// dependencies (openssl, bzip2, xz). Each builder downloads and extracts a
// source archive into the project workspace, then configures, compiles, and
// installs it under its own prefix.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/fetch"
	"github.com/buildpy-dev/buildpy/internal/project"
	"github.com/buildpy-dev/buildpy/internal/shell"
)

// Sentinel errors
var (
	ErrExtraction     = errors.New("source extraction failed")
	ErrDownloadFailed = errors.New("download failed")
)

// Target holds what every build recipe needs: identity, source location
// templates, and the workspace plumbing.
type Target struct {
	Name            string // display name, e.g. "Python", "openssl"
	Version         string
	RepoURL         string
	ArchiveTemplate string // e.g. "openssl-{version}.tar.gz"
	URLTemplate     string // e.g. "https://.../{archive}"
	LibProducts     []string

	Project *project.Project
	Shell   *shell.Shell
	Logger  *slog.Logger
}

// NewTarget wires a target from a configured dependency entry.
func NewTarget(name string, dep config.Dependency, proj *project.Project, sh *shell.Shell, logger *slog.Logger) Target {
	if logger == nil {
		logger = slog.Default()
	}
	return Target{
		Name:            name,
		Version:         dep.Version,
		RepoURL:         dep.RepoURL,
		ArchiveTemplate: dep.ArchiveTemplate,
		URLTemplate:     dep.URLTemplate,
		Project:         proj,
		Shell:           sh,
		Logger:          logger,
	}
}

// Ver returns the short major.minor version: "3.11" for 3.11.7.
func (t *Target) Ver() string {
	parts := strings.SplitN(t.Version, ".", 3)
	if len(parts) < 2 {
		return t.Version
	}
	return parts[0] + "." + parts[1]
}

// VerMajor returns the major version component.
func (t *Target) VerMajor() string {
	return strings.SplitN(t.Version, ".", 2)[0]
}

// VerMinor returns the minor version component.
func (t *Target) VerMinor() string {
	parts := strings.SplitN(t.Version, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// VerPatch returns the patch version component.
func (t *Target) VerPatch() string {
	parts := strings.SplitN(t.Version, ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// VerNoDot returns the concatenated major and minor components: "311".
func (t *Target) VerNoDot() string {
	return strings.ReplaceAll(t.Ver(), ".", "")
}

// NameVersion returns "<Name>-<version>", matching the directory the source
// archive extracts to: "Python-3.11.7".
func (t *Target) NameVersion() string {
	return fmt.Sprintf("%s-%s", t.Name, t.Version)
}

// NameVer returns "<name><major.minor>": "python3.11".
func (t *Target) NameVer() string {
	return strings.ToLower(t.Name) + t.Ver()
}

// DownloadArchive returns the archive filename with the version expanded.
func (t *Target) DownloadArchive() string {
	return config.ExpandTemplate(t.ArchiveTemplate, map[string]string{
		"version": t.Version,
	})
}

// DownloadURL returns the source URL with the version and archive expanded.
func (t *Target) DownloadURL() string {
	return config.ExpandTemplate(t.URLTemplate, map[string]string{
		"version": t.Version,
		"archive": t.DownloadArchive(),
	})
}

// DownloadedArchive returns the archive path in the downloads directory.
func (t *Target) DownloadedArchive() string {
	return filepath.Join(t.Project.Downloads, t.DownloadArchive())
}

// ArchiveIsDownloaded reports whether the archive already exists locally.
func (t *Target) ArchiveIsDownloaded() bool {
	_, err := os.Stat(t.DownloadedArchive())
	return err == nil
}

// SrcDir returns the extracted source directory of the target.
func (t *Target) SrcDir() string {
	return filepath.Join(t.Project.Src, t.NameVersion())
}

// Prefix returns the install prefix of the target.
func (t *Target) Prefix() string {
	return t.Project.InstallPrefix(strings.ToLower(t.Name))
}

// LibProductsExist reports whether every built library product is present
// under the prefix.
func (t *Target) LibProductsExist() bool {
	if len(t.LibProducts) == 0 {
		return false
	}
	for _, lib := range t.LibProducts {
		if _, err := os.Stat(filepath.Join(t.Prefix(), "lib", lib)); err != nil {
			return false
		}
	}
	return true
}

// FetchSource downloads the source archive (unless cached) and extracts it
// into the project source directory, replacing any stale extraction.
func (t *Target) FetchSource(ctx context.Context, dl *fetch.Downloader) error {
	if err := t.Project.Setup(); err != nil {
		return err
	}

	if !t.ArchiveIsDownloaded() {
		if dl == nil {
			dl = fetch.NewDownloader(1, 5*time.Minute, t.Logger, t.Logger)
		}
		results, err := dl.Process(ctx, []fetch.Task{{
			Component:  strings.ToLower(t.Name),
			Version:    t.Version,
			URL:        t.DownloadURL(),
			OutputPath: t.DownloadedArchive(),
		}})
		if err != nil {
			return err
		}
		for _, res := range results {
			if !res.Success {
				return fmt.Errorf("%w: %s: %v", ErrDownloadFailed, t.DownloadURL(), res.Error)
			}
		}
		t.Logger.Info("downloaded source archive", "archive", t.DownloadArchive())
	}

	if _, err := os.Stat(t.SrcDir()); err == nil {
		if err := shell.RemoveAll(t.SrcDir()); err != nil {
			return err
		}
	}

	if err := t.Shell.Extract(ctx, t.DownloadedArchive(), t.Project.Src); err != nil {
		return err
	}
	if _, err := os.Stat(t.SrcDir()); err != nil {
		return fmt.Errorf("%w: no source at %s after extracting %s",
			ErrExtraction, t.SrcDir(), t.DownloadArchive())
	}
	return nil
}
