package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/go-github/v57/github"

	"github.com/buildpy-dev/buildpy/internal/storage"
)

// mockGitHubReleaser implements GitHubReleaser for testing.
type mockGitHubReleaser struct {
	ensureReleaseFn func(tag, name, body string, draft bool) (*github.RepositoryRelease, bool, error)
	uploadAssetsFn  func(releaseID int64, filePaths []string) ([]*github.ReleaseAsset, error)

	ensuredTags   []string
	uploadedPaths []string
}

func (m *mockGitHubReleaser) EnsureRelease(tag, name, body string, draft bool) (*github.RepositoryRelease, bool, error) {
	m.ensuredTags = append(m.ensuredTags, tag)
	if m.ensureReleaseFn != nil {
		return m.ensureReleaseFn(tag, name, body, draft)
	}
	id := int64(123)
	htmlURL := fmt.Sprintf("https://github.com/owner/repo/releases/tag/%s", tag)
	return &github.RepositoryRelease{
		ID:      &id,
		TagName: &tag,
		Name:    &name,
		Body:    &body,
		HTMLURL: &htmlURL,
		Draft:   &draft,
	}, true, nil
}

func (m *mockGitHubReleaser) UploadAssets(releaseID int64, filePaths []string) ([]*github.ReleaseAsset, error) {
	m.uploadedPaths = append(m.uploadedPaths, filePaths...)
	if m.uploadAssetsFn != nil {
		return m.uploadAssetsFn(releaseID, filePaths)
	}
	assets := make([]*github.ReleaseAsset, 0, len(filePaths))
	for _, path := range filePaths {
		name := filepath.Base(path)
		url := fmt.Sprintf("https://github.com/owner/repo/releases/download/tag/%s", name)
		assets = append(assets, &github.ReleaseAsset{
			Name:               &name,
			BrowserDownloadURL: &url,
		})
	}
	return assets, nil
}

func (m *mockGitHubReleaser) GetAssetDownloadURL(asset *github.ReleaseAsset) string {
	return asset.GetBrowserDownloadURL()
}

func (m *mockGitHubReleaser) GetReleaseURL(release *github.RepositoryRelease) string {
	return release.GetHTMLURL()
}

// mockDatabaseStore implements DatabaseStore for testing.
type mockDatabaseStore struct {
	createReleaseFn func(release *storage.Release) error
	releases        []*storage.Release
}

func (m *mockDatabaseStore) CreateRelease(release *storage.Release) error {
	if m.createReleaseFn != nil {
		return m.createReleaseFn(release)
	}
	release.ID = uint(len(m.releases) + 1)
	m.releases = append(m.releases, release)
	return nil
}

func (m *mockDatabaseStore) GetRelease(version, variant string) (*storage.Release, error) {
	for _, r := range m.releases {
		if r.Version == version && r.Variant == variant {
			return r, nil
		}
	}
	return nil, fmt.Errorf("release not found for %s %s", version, variant)
}
