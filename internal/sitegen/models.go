package sitegen

import "time"

// SiteModel represents the complete site structure for HTML generation.
type SiteModel struct {
	Variants []VariantModel
}

// VariantModel represents all data for a build variant (e.g. shared_max).
type VariantModel struct {
	Name      string
	Platforms []PlatformModel
}

// PlatformModel represents all versions for a specific OS (linux, mac, windows).
type PlatformModel struct {
	OS       string // "linux", "mac", "windows"
	Versions []VersionModel
}

// VersionModel represents all artifacts for a specific python version.
type VersionModel struct {
	Major    int
	Minor    int
	Patch    int
	Version  string // Full version string (e.g. "3.13.11")
	Releases []ReleaseModel
}

// ReleaseModel represents a single release with its artifacts.
type ReleaseModel struct {
	ReleaseTag string
	ReleaseURL string
	CreatedAt  time.Time
	Artifacts  []ArtifactModel
}

// ArtifactModel represents downloadable artifacts for one platform.
type ArtifactModel struct {
	Platform     string // e.g. "linux-x64"
	PlatformOS   string // e.g. "linux"
	PlatformArch string // e.g. "x64"
	Archive      *FileModel
	Manifest     *FileModel
	Signature    *FileModel
}

// FileModel represents a single file with its metadata.
type FileModel struct {
	Filename string
	Size     int64
	SHA256   string
	URL      string
}

// DistributionModel represents a single distribution file in the simple index.
type DistributionModel struct {
	Filename string
	URL      string
	SHA256   string // Included in URL fragment as #sha256=<hash>
}
