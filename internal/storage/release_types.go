// Package storage provides database models and operations for release tracking.
package storage

import "time"

// Release represents a GitHub release of built interpreter artifacts.
type Release struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Version     string    `gorm:"not null;index:idx_release_version" json:"version"`
	Variant     string    `gorm:"not null;index:idx_release_version" json:"variant"`
	SemverMajor int       `gorm:"not null" json:"semver_major"`
	SemverMinor int       `gorm:"not null" json:"semver_minor"`
	SemverPatch int       `gorm:"not null" json:"semver_patch"`
	ReleaseTag  string    `gorm:"not null;unique" json:"release_tag"`
	ReleaseURL  string    `gorm:"not null" json:"release_url"`
	Artifacts   string    `gorm:"type:json" json:"artifacts"` // JSON blob
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName overrides the table name for GORM.
func (Release) TableName() string {
	return "releases"
}

// ReleaseArtifacts represents the complete artifacts structure stored in the
// Release.Artifacts JSON column.
type ReleaseArtifacts struct {
	Platforms   []PlatformArtifact `json:"platforms"`
	CommonFiles []CommonFile       `json:"common_files"`
	Metadata    ArtifactsMetadata  `json:"metadata"`
}

// PlatformArtifact represents the artifacts for one platform (e.g. linux-x64).
type PlatformArtifact struct {
	Platform     string        `json:"platform"`      // e.g., "linux-x64"
	PlatformOS   string        `json:"platform_os"`   // e.g., "linux"
	PlatformArch string        `json:"platform_arch"` // e.g., "x64"
	Archive      *ArtifactFile `json:"archive"`       // zipped install tree
	Manifest     *ArtifactFile `json:"manifest,omitempty"`
	Signature    *ArtifactFile `json:"signature,omitempty"`
}

// ArtifactFile represents a single file artifact (archive, manifest, signature).
type ArtifactFile struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256,omitempty"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CommonFile represents release-level files (not platform-specific).
type CommonFile struct {
	Type       string    `json:"type"` // e.g., "checksum_file"
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ArtifactsMetadata contains summary information about all artifacts.
type ArtifactsMetadata struct {
	TotalArtifacts     int   `json:"total_artifacts"`
	TotalSizeBytes     int64 `json:"total_size_bytes"`
	UploadDurationSecs int   `json:"upload_duration_seconds"`
	PlatformCount      int   `json:"platform_count"`
	HasSignatures      bool  `json:"has_signatures"`
	AllScansClean      bool  `json:"all_scans_clean"`
}
