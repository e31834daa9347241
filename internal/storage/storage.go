// Package storage provides build and download tracking using GORM and SQLite
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sentinel errors following Dave Cheney's principle: define errors as values
var (
	ErrNilDownload       = errors.New("download cannot be nil")
	ErrNilBuild          = errors.New("build cannot be nil")
	ErrNotFound          = errors.New("record not found")
	ErrInvalidVersionFmt = errors.New("invalid version format: expected major.minor.patch")
)

// Download represents a downloaded source archive with verification status
type Download struct {
	ID uint `gorm:"primaryKey"`

	// What was downloaded
	Component    string `gorm:"not null;index:idx_component_version;uniqueIndex:idx_unique_download"`
	Version      string `gorm:"not null;index:idx_component_version;uniqueIndex:idx_unique_download"`
	VersionMajor int    `gorm:"index"`
	VersionMinor int
	VersionPatch int
	Filename     string `gorm:"not null"`
	FileSize     int64
	SourceURL    string `gorm:"not null"`

	// When
	DownloadedAt time.Time `gorm:"not null"`

	// Checksum verification
	ChecksumVerified  bool `gorm:"not null;default:false"`
	ChecksumAlgorithm string
	ChecksumValue     string

	// GPG verification
	GPGVerified      bool `gorm:"not null;default:false"`
	GPGSignatureURL  string
	GPGKeyringSource string

	// Malware scan
	Scanned   bool `gorm:"not null;default:false"`
	ScanClean bool `gorm:"not null;default:false"`

	// Status
	VerificationStatus string `gorm:"not null"`
	ErrorMessage       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Build represents one completed (or failed) interpreter build.
type Build struct {
	ID uint `gorm:"primaryKey"`

	Version      string `gorm:"not null;index:idx_build_version"`
	VersionMajor int    `gorm:"index"`
	VersionMinor int
	VersionPatch int
	Variant      string `gorm:"not null;index"`
	Platform     string `gorm:"not null"`
	Architecture string `gorm:"not null"`

	Prefix      string // install location
	SizeBytes   int64  // size of the install tree
	DurationSec int

	Optimized bool
	Reduced   bool   // a reduction manifest was applied
	Status    string `gorm:"not null"` // success or failed
	ErrorMsg  string

	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the interface for build storage operations
type Store interface {
	Close() error
	RecordDownload(*Download) error
	GetDownload(component, version string) (*Download, error)
	IsAlreadyDownloaded(component, version string) (bool, error)
	UpdateVerification(id uint, checksumVerified, gpgVerified bool, status, errorMsg string) error
	UpdateChecksumVerification(id uint, verified bool, algorithm, value string) error
	UpdateGPGVerification(id uint, verified bool, signatureURL, keyringSource string) error
	UpdateScan(id uint, scanned, clean bool) error
	RecordBuild(*Build) error
	ListBuilds() ([]*Build, error)
	ListBuildsByVersion(version string) ([]*Build, error)
	ListDownloads() ([]*Download, error)
	GetStats() (map[string]interface{}, error)
}

// DB wraps gorm.DB with our storage operations
type DB struct {
	db *gorm.DB
}

// Config holds database configuration
type Config struct {
	DatabasePath string
	LogLevel     string // silent, error, warn, info
}

// InitDB initializes the database connection and runs migrations
func InitDB(cfg Config) (*DB, error) {
	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate schema
	if err := db.AutoMigrate(&Download{}, &Build{}, &Release{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// RecordDownload creates a new download record
func (d *DB) RecordDownload(download *Download) error {
	if download == nil {
		return ErrNilDownload
	}
	if err := d.db.Create(download).Error; err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// GetDownload retrieves a download by component and version
func (d *DB) GetDownload(component, version string) (*Download, error) {
	var download Download
	err := d.db.Where("component = ? AND version = ?", component, version).First(&download).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download: %w", err)
	}
	return &download, nil
}

// IsAlreadyDownloaded checks if an archive was successfully downloaded and verified
func (d *DB) IsAlreadyDownloaded(component, version string) (bool, error) {
	var count int64
	err := d.db.Model(&Download{}).Where(
		"component = ? AND version = ? AND verification_status = ?",
		component, version, "success").Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check if already downloaded: %w", err)
	}
	return count > 0, nil
}

// UpdateVerification updates verification status for a download
func (d *DB) UpdateVerification(id uint, checksumVerified, gpgVerified bool, status, errorMsg string) error {
	updates := map[string]interface{}{
		"checksum_verified":   checksumVerified,
		"gpg_verified":        gpgVerified,
		"verification_status": status,
	}
	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}
	if err := d.db.Model(&Download{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update verification for download %d: %w", id, err)
	}
	return nil
}

// UpdateChecksumVerification updates only checksum-related fields
func (d *DB) UpdateChecksumVerification(id uint, verified bool, algorithm, value string) error {
	if err := d.db.Model(&Download{}).Where("id = ?", id).Updates(map[string]interface{}{
		"checksum_verified":  verified,
		"checksum_algorithm": algorithm,
		"checksum_value":     value,
	}).Error; err != nil {
		return fmt.Errorf("failed to update checksum verification for download %d: %w", id, err)
	}
	return nil
}

// UpdateGPGVerification updates only GPG-related fields
func (d *DB) UpdateGPGVerification(id uint, verified bool, signatureURL, keyringSource string) error {
	if err := d.db.Model(&Download{}).Where("id = ?", id).Updates(map[string]interface{}{
		"gpg_verified":       verified,
		"gpg_signature_url":  signatureURL,
		"gpg_keyring_source": keyringSource,
	}).Error; err != nil {
		return fmt.Errorf("failed to update GPG verification for download %d: %w", id, err)
	}
	return nil
}

// UpdateScan updates malware scan fields for a download
func (d *DB) UpdateScan(id uint, scanned, clean bool) error {
	if err := d.db.Model(&Download{}).Where("id = ?", id).Updates(map[string]interface{}{
		"scanned":    scanned,
		"scan_clean": clean,
	}).Error; err != nil {
		return fmt.Errorf("failed to update scan result for download %d: %w", id, err)
	}
	return nil
}

// RecordBuild creates a new build record
func (d *DB) RecordBuild(build *Build) error {
	if build == nil {
		return ErrNilBuild
	}
	if err := d.db.Create(build).Error; err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}
	return nil
}

// ListBuilds returns all builds, newest first
func (d *DB) ListBuilds() ([]*Build, error) {
	var builds []*Build
	if err := d.db.Order("started_at DESC").Find(&builds).Error; err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}

// ListBuildsByVersion returns all builds of a specific python version
func (d *DB) ListBuildsByVersion(version string) ([]*Build, error) {
	var builds []*Build
	if err := d.db.Where("version = ?", version).
		Order("started_at DESC").Find(&builds).Error; err != nil {
		return nil, fmt.Errorf("failed to list builds for %s: %w", version, err)
	}
	return builds, nil
}

// ListDownloads returns all downloads, newest first
func (d *DB) ListDownloads() ([]*Download, error) {
	var downloads []*Download
	if err := d.db.Order("downloaded_at DESC").Find(&downloads).Error; err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	return downloads, nil
}

// GetStats returns build and download statistics
func (d *DB) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalDownloads int64
	if err := d.db.Model(&Download{}).Count(&totalDownloads).Error; err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}
	stats["total_downloads"] = totalDownloads

	var totalBuilds int64
	if err := d.db.Model(&Build{}).Count(&totalBuilds).Error; err != nil {
		return nil, fmt.Errorf("failed to count builds: %w", err)
	}
	stats["total_builds"] = totalBuilds

	// By variant
	var variantCounts []struct {
		Variant string
		Count   int64
	}
	if err := d.db.Model(&Build{}).Select("variant, COUNT(*) as count").
		Group("variant").Scan(&variantCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to get variant counts: %w", err)
	}
	stats["by_variant"] = variantCounts

	// Build status
	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := d.db.Model(&Build{}).Select("status, COUNT(*) as count").
		Group("status").Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	stats["by_status"] = statusCounts

	return stats, nil
}

// ParseSemver parses a semantic version string and returns major, minor, patch components.
// It expects versions in the format "major.minor.patch" (e.g., "1.2.3").
// Returns an error if the version string doesn't match the expected format.
func ParseSemver(version string) (major, minor, patch int, err error) {
	n, err := fmt.Sscanf(version, "%d.%d.%d", &major, &minor, &patch)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to parse version %q: %w", version, err)
	}
	if n != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidVersionFmt, version)
	}
	return major, minor, patch, nil
}

// ExtractFilename extracts the filename from a file path using filepath.Base.
func ExtractFilename(path string) string {
	return filepath.Base(path)
}
