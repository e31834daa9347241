package sitegen

import (
	"encoding/json"
	"fmt"

	"github.com/buildpy-dev/buildpy/internal/storage"
)

// ReleaseWithArtifacts combines a Release with its parsed artifacts.
type ReleaseWithArtifacts struct {
	Release   storage.Release
	Artifacts storage.ReleaseArtifacts
}

// LoadReleases loads all releases from the ReleaseReader and parses their
// artifact JSON blobs.
func LoadReleases(reader ReleaseReader) ([]ReleaseWithArtifacts, error) {
	releases, err := reader.GetAllReleases()
	if err != nil {
		return nil, fmt.Errorf("failed to load releases: %w", err)
	}

	result := make([]ReleaseWithArtifacts, 0, len(releases))
	for _, release := range releases {
		var artifacts storage.ReleaseArtifacts
		if err := json.Unmarshal([]byte(release.Artifacts), &artifacts); err != nil {
			return nil, fmt.Errorf("failed to parse artifacts JSON for release %s: %w", release.ReleaseTag, err)
		}
		result = append(result, ReleaseWithArtifacts{
			Release:   release,
			Artifacts: artifacts,
		})
	}
	return result, nil
}
