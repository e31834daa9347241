package sitegen

import (
	"sort"
)

// BuildModel transforms releases into a SiteModel with deterministic sorting.
// Sorting order: variant (asc), OS (linux < mac < windows), semver (desc),
// created_at (desc).
func BuildModel(releases []ReleaseWithArtifacts) *SiteModel {
	if len(releases) == 0 {
		return &SiteModel{Variants: []VariantModel{}}
	}

	// variant -> os -> major -> minor -> patch -> releases
	type osMapType map[string]map[int]map[int]map[int][]ReleaseWithArtifacts
	variantMap := make(map[string]osMapType)

	for _, rel := range releases {
		variant := rel.Release.Variant
		if variantMap[variant] == nil {
			variantMap[variant] = make(osMapType)
		}

		for _, platform := range rel.Artifacts.Platforms {
			if platform.Archive == nil {
				continue // nothing downloadable for this platform
			}

			os := normalizeOS(platform.PlatformOS)
			if variantMap[variant][os] == nil {
				variantMap[variant][os] = make(map[int]map[int]map[int][]ReleaseWithArtifacts)
			}

			major := rel.Release.SemverMajor
			if variantMap[variant][os][major] == nil {
				variantMap[variant][os][major] = make(map[int]map[int][]ReleaseWithArtifacts)
			}

			minor := rel.Release.SemverMinor
			if variantMap[variant][os][major][minor] == nil {
				variantMap[variant][os][major][minor] = make(map[int][]ReleaseWithArtifacts)
			}

			patch := rel.Release.SemverPatch
			variantMap[variant][os][major][minor][patch] = append(
				variantMap[variant][os][major][minor][patch],
				rel,
			)
		}
	}

	var variantModels []VariantModel
	for _, name := range sortedStringKeys(variantMap) {
		variantModels = append(variantModels, buildVariantModel(name, variantMap[name]))
	}

	return &SiteModel{Variants: variantModels}
}

func buildVariantModel(name string, osMap map[string]map[int]map[int]map[int][]ReleaseWithArtifacts) VariantModel {
	var platformModels []PlatformModel
	for _, osName := range sortedOSKeys(osMap) {
		platformModels = append(platformModels, buildPlatformModel(osName, osMap[osName]))
	}
	return VariantModel{
		Name:      name,
		Platforms: platformModels,
	}
}

func buildPlatformModel(osName string, majorMap map[int]map[int]map[int][]ReleaseWithArtifacts) PlatformModel {
	var versionModels []VersionModel

	// Newest major first.
	majorVersions := sortedIntKeys(majorMap)
	for i := len(majorVersions) - 1; i >= 0; i-- {
		major := majorVersions[i]
		versionModels = append(versionModels, buildVersionModels(major, majorMap[major], osName)...)
	}

	return PlatformModel{
		OS:       osName,
		Versions: versionModels,
	}
}

func buildVersionModels(major int, minorMap map[int]map[int][]ReleaseWithArtifacts, osName string) []VersionModel {
	var versionModels []VersionModel

	minorVersions := sortedIntKeys(minorMap)
	for i := len(minorVersions) - 1; i >= 0; i-- {
		minor := minorVersions[i]
		versionModels = append(versionModels, buildPatchVersionModels(major, minor, minorMap[minor], osName)...)
	}
	return versionModels
}

func buildPatchVersionModels(major, minor int, patchMap map[int][]ReleaseWithArtifacts, osName string) []VersionModel {
	var versionModels []VersionModel

	patchVersions := sortedIntKeys(patchMap)
	for i := len(patchVersions) - 1; i >= 0; i-- {
		patch := patchVersions[i]
		releases := patchMap[patch]

		sort.Slice(releases, func(i, j int) bool {
			return releases[i].Release.CreatedAt.After(releases[j].Release.CreatedAt)
		})

		var releaseModels []ReleaseModel
		for _, rel := range releases {
			releaseModels = append(releaseModels, buildReleaseModelForOS(rel, osName))
		}

		versionModels = append(versionModels, VersionModel{
			Major:    major,
			Minor:    minor,
			Patch:    patch,
			Version:  releases[0].Release.Version,
			Releases: releaseModels,
		})
	}
	return versionModels
}

// buildReleaseModelForOS converts a ReleaseWithArtifacts into a ReleaseModel,
// keeping only artifacts matching the given OS.
func buildReleaseModelForOS(rel ReleaseWithArtifacts, osFilter string) ReleaseModel {
	var artifacts []ArtifactModel
	for _, platform := range rel.Artifacts.Platforms {
		if platform.Archive == nil {
			continue
		}
		if normalizeOS(platform.PlatformOS) != osFilter {
			continue
		}

		artifact := ArtifactModel{
			Platform:     platform.Platform,
			PlatformOS:   platform.PlatformOS,
			PlatformArch: platform.PlatformArch,
			Archive: &FileModel{
				Filename: platform.Archive.Filename,
				Size:     platform.Archive.Size,
				SHA256:   platform.Archive.SHA256,
				URL:      platform.Archive.URL,
			},
		}
		if platform.Manifest != nil {
			artifact.Manifest = &FileModel{
				Filename: platform.Manifest.Filename,
				Size:     platform.Manifest.Size,
				URL:      platform.Manifest.URL,
			}
		}
		if platform.Signature != nil {
			artifact.Signature = &FileModel{
				Filename: platform.Signature.Filename,
				Size:     platform.Signature.Size,
				SHA256:   platform.Signature.SHA256,
				URL:      platform.Signature.URL,
			}
		}
		artifacts = append(artifacts, artifact)
	}

	return ReleaseModel{
		ReleaseTag: rel.Release.ReleaseTag,
		ReleaseURL: rel.Release.ReleaseURL,
		CreatedAt:  rel.Release.CreatedAt,
		Artifacts:  artifacts,
	}
}

// normalizeOS maps "darwin" to "mac" for consistent site paths.
func normalizeOS(os string) string {
	if os == "darwin" {
		return "mac"
	}
	return os
}

func sortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedOSKeys returns OS keys sorted in order: linux, mac, windows, then any
// remaining names alphabetically.
func sortedOSKeys[T any](m map[string]T) []string {
	order := []string{"linux", "mac", "windows"}
	var result []string
	for _, os := range order {
		if _, exists := m[os]; exists {
			result = append(result, os)
		}
	}
	var extra []string
	for k := range m {
		known := false
		for _, o := range order {
			if k == o {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(result, extra...)
}

func sortedIntKeys[T any](m map[int]T) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
