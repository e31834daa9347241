package analyze

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/buildpy-dev/buildpy/internal/config"
)

// Manifest describes the reductions to apply to an installed build. It is
// generated after analysis and applied post-build, before the stdlib is
// compressed, so ensurepip keeps working during the build itself.
type Manifest struct {
	Version          string           `json:"version"`
	PythonVersion    string           `json:"python_version"`
	Variant          string           `json:"config"`
	PackagesAnalyzed []string         `json:"packages_analyzed"`
	Analysis         ManifestAnalysis `json:"analysis"`
	Reductions       Reductions       `json:"reductions"`
	Warnings         []Warning        `json:"warnings"`
}

// ManifestAnalysis records what the analysis observed.
type ManifestAnalysis struct {
	RequiredExtensions []string `json:"required_extensions"`
	StdlibImports      []string `json:"stdlib_imports"`
	ThirdParty         []string `json:"third_party"`
}

// Reductions lists what to remove from the build tree.
type Reductions struct {
	ExtensionsToRemove []string `json:"extensions_to_remove"`
	ExtensionPatterns  []string `json:"extension_patterns"`
	StdlibToRemove     []string `json:"stdlib_to_remove"`
}

// Warning flags conditions the user should review before reducing.
type Warning struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Modules []string `json:"modules"`
}

// ApplyStats reports the effect of applying a manifest.
type ApplyStats struct {
	ExtensionsRemoved int
	StdlibRemoved     int
	BytesSaved        int64
}

// NewManifest builds a reduction manifest from an analysis result. Modules
// protected by the keep configuration are excluded from the reductions.
func NewManifest(result *Result, version, variant string, pkgs []string, keep config.KeepConfig) *Manifest {
	var extensionsToRemove []string
	for mod := range result.PotentiallyUnused {
		if coreModules[mod] {
			continue
		}
		if keep.MustKeep(mod, runtime.GOOS, runtime.GOARCH) {
			continue
		}
		extensionsToRemove = append(extensionsToRemove, mod)
	}
	sort.Strings(extensionsToRemove)

	// Extension files land in lib-dynload as mod.cpython-3XX-platform.so
	patternSet := make(map[string]bool)
	for _, mod := range extensionsToRemove {
		patternSet[mod+".cpython-*.so"] = true
		patternSet[mod+".*.so"] = true
	}

	// Packages always need ensurepip and its bundled wheels
	requiredStdlib := make(map[string]bool, len(result.StdlibImports)+3)
	for mod := range result.StdlibImports {
		requiredStdlib[mod] = true
	}
	requiredStdlib["ensurepip"] = true
	requiredStdlib["pip"] = true
	requiredStdlib["setuptools"] = true

	stdlibSet := make(map[string]bool)
	for mod, paths := range stdlibModulePaths {
		if requiredStdlib[mod] {
			continue
		}
		if keep.MustKeep(mod, runtime.GOOS, runtime.GOARCH) {
			continue
		}
		for _, p := range paths {
			stdlibSet[p] = true
		}
	}

	var warnings []Warning
	if len(result.NeededButDisabled) > 0 {
		warnings = append(warnings, Warning{
			Type:    "required_but_disabled",
			Message: "These modules are required but disabled in current config",
			Modules: sortedKeys(result.NeededButDisabled),
		})
	}

	return &Manifest{
		Version:          "1.0",
		PythonVersion:    version,
		Variant:          variant,
		PackagesAnalyzed: pkgs,
		Analysis: ManifestAnalysis{
			RequiredExtensions: sortedKeys(result.RequiredExtensions),
			StdlibImports:      sortedKeys(result.StdlibImports),
			ThirdParty:         sortedKeys(result.ThirdParty),
		},
		Reductions: Reductions{
			ExtensionsToRemove: extensionsToRemove,
			ExtensionPatterns:  sortedKeys(patternSet),
			StdlibToRemove:     sortedKeys(stdlibSet),
		},
		Warnings: warnings,
	}
}

// Write saves the manifest as indented JSON.
func (m *Manifest) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a reduction manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Apply removes the files named by the manifest from an installed build at
// prefix. ver is the major.minor version used to locate lib/pythonX.Y.
func (m *Manifest) Apply(prefix, ver string, logger *slog.Logger) (ApplyStats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var stats ApplyStats

	libDir := filepath.Join(prefix, "lib", "python"+ver)
	if _, err := os.Stat(libDir); err != nil {
		return stats, fmt.Errorf("library directory not found: %s", libDir)
	}

	dynloadDir := filepath.Join(libDir, "lib-dynload")
	if _, err := os.Stat(dynloadDir); err == nil {
		for _, pattern := range m.Reductions.ExtensionPatterns {
			matches, err := filepath.Glob(filepath.Join(dynloadDir, pattern))
			if err != nil {
				continue
			}
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil || info.IsDir() {
					continue
				}
				if err := os.Remove(match); err != nil {
					return stats, fmt.Errorf("failed to remove extension %s: %w", match, err)
				}
				stats.ExtensionsRemoved++
				stats.BytesSaved += info.Size()
				logger.Debug("removed extension", "file", filepath.Base(match), "size", info.Size())
			}
		}
	}

	for _, relPath := range m.Reductions.StdlibToRemove {
		target := filepath.Join(libDir, relPath)
		info, err := os.Stat(target)
		if err != nil {
			continue
		}

		if info.IsDir() {
			size := dirSize(target)
			if err := os.RemoveAll(target); err != nil {
				return stats, fmt.Errorf("failed to remove directory %s: %w", relPath, err)
			}
			stats.BytesSaved += size
		} else {
			if err := os.Remove(target); err != nil {
				return stats, fmt.Errorf("failed to remove file %s: %w", relPath, err)
			}
			stats.BytesSaved += info.Size()
		}
		stats.StdlibRemoved++
		logger.Debug("removed stdlib entry", "path", relPath)
	}

	return stats, nil
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
