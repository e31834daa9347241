// Package cli provides command-line interface components with testable abstractions.
package cli

import (
	"github.com/google/go-github/v57/github"

	"github.com/buildpy-dev/buildpy/internal/storage"
)

// GitHubReleaser abstracts GitHub release operations for testing.
// Following Dave Cheney's principle: "Accept interfaces, return structs"
type GitHubReleaser interface {
	// EnsureRelease returns the release for tag, creating it when missing.
	// The bool reports whether a new release was created.
	EnsureRelease(tag, name, body string, draft bool) (*github.RepositoryRelease, bool, error)

	// UploadAssets uploads files to an existing GitHub release, stopping at
	// the first failure.
	UploadAssets(releaseID int64, filePaths []string) ([]*github.ReleaseAsset, error)

	// GetAssetDownloadURL returns the public download URL for a release asset.
	GetAssetDownloadURL(asset *github.ReleaseAsset) string

	// GetReleaseURL returns the HTML URL for a GitHub release.
	GetReleaseURL(release *github.RepositoryRelease) string
}

// DatabaseStore abstracts the release table operations the publisher needs.
type DatabaseStore interface {
	// CreateRelease inserts a new release record into the database.
	CreateRelease(release *storage.Release) error
}
