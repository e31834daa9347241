package sitegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"log/slog"
)

// RenderSimpleIndex generates a PEP 503 style index for automated tooling.
// Creates: /simple/index.html (variants)
//
//	/simple/<variant>/index.html (release series)
//	/simple/<variant>/<major.minor>/index.html (archives)
//	/simple/<variant>/<major.minor>/index.json (tag-relative paths)
func RenderSimpleIndex(model *SiteModel, outDir string, logger *slog.Logger) error {
	simpleDir := filepath.Join(outDir, "simple")

	if err := renderSimpleRootIndex(model, simpleDir, logger); err != nil {
		return fmt.Errorf("failed to render simple root index: %w", err)
	}

	for _, variant := range model.Variants {
		if err := renderSimpleVariantPages(variant, simpleDir, logger); err != nil {
			return fmt.Errorf("failed to render pages for %s: %w", variant.Name, err)
		}
	}
	return nil
}

// renderSimpleVariantPages renders /simple/<variant>/index.html and series pages.
func renderSimpleVariantPages(variant VariantModel, simpleDir string, logger *slog.Logger) error {
	name := NormalizePackageName(variant.Name)
	variantDir := filepath.Join(simpleDir, name)

	series := collectSeries(variant)

	if err := renderSimpleVariantIndex(name, series, variantDir, logger); err != nil {
		return err
	}

	for _, s := range series {
		if err := renderSeriesPage(variant, s, variantDir, logger); err != nil {
			return err
		}
	}
	return nil
}

// collectSeries collects unique minor release series from a variant, oldest first.
func collectSeries(variant VariantModel) []string {
	type mm struct{ major, minor int }
	seen := make(map[mm]bool)
	var keys []mm

	for _, platform := range variant.Platforms {
		for _, version := range platform.Versions {
			k := mm{version.Major, version.Minor}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].major != keys[j].major {
			return keys[i].major < keys[j].major
		}
		return keys[i].minor < keys[j].minor
	})

	series := make([]string, 0, len(keys))
	for _, k := range keys {
		series = append(series, seriesKey(k.major, k.minor))
	}
	return series
}

// renderSimpleVariantIndex renders /simple/<variant>/index.html listing series.
func renderSimpleVariantIndex(name string, series []string, variantDir string, logger *slog.Logger) error {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head><title>")
	buf.WriteString(name)
	buf.WriteString(" versions</title></head>\n<body>\n<h1>")
	buf.WriteString(name)
	buf.WriteString("</h1>\n\n")

	for _, s := range series {
		buf.WriteString(fmt.Sprintf("<a href=\"%s/\">%s</a><br/>\n", s, s))
	}

	buf.WriteString("\n</body>\n</html>\n")

	path := filepath.Join(variantDir, "index.html")
	if err := writeFileIfChanged(path, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write variant index: %w", err)
	}

	logger.Debug("rendered simple variant index", "variant", name, "series", len(series))
	return nil
}

// renderSeriesPage renders /simple/<variant>/<series>/index.html with all archives.
func renderSeriesPage(variant VariantModel, series string, variantDir string, logger *slog.Logger) error {
	distMap := make(map[string]DistributionModel)
	for _, platform := range variant.Platforms {
		for _, version := range platform.Versions {
			if seriesKey(version.Major, version.Minor) == series {
				collectDistributionsFromVersion(version, distMap)
			}
		}
	}

	distributions := make([]DistributionModel, 0, len(distMap))
	for _, dist := range distMap {
		distributions = append(distributions, dist)
	}
	sort.Slice(distributions, func(i, j int) bool {
		return distributions[i].Filename < distributions[j].Filename
	})

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head><title>")
	buf.WriteString(fmt.Sprintf("%s %s", variant.Name, series))
	buf.WriteString("</title></head>\n<body>\n<h1>")
	buf.WriteString(fmt.Sprintf("%s %s archives", variant.Name, series))
	buf.WriteString("</h1>\n\n")

	for _, dist := range distributions {
		buf.WriteString("<a href=\"")
		buf.WriteString(dist.URL)
		buf.WriteString("\"")
		if dist.SHA256 != "" {
			buf.WriteString("#sha256=")
			buf.WriteString(dist.SHA256)
		}
		buf.WriteString(">")
		buf.WriteString(dist.Filename)
		buf.WriteString("</a><br/>\n")
	}

	buf.WriteString("\n</body>\n</html>\n")

	seriesDir := filepath.Join(variantDir, series)
	path := filepath.Join(seriesDir, "index.html")
	if err := writeFileIfChanged(path, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write series page: %w", err)
	}

	// JSON index for automation tooling (e.g. mirror discovery).
	artifactPaths := collectArtifactPathsBySeries(variant, series)
	jsonData, err := json.MarshalIndent(artifactPaths, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact index: %w", err)
	}

	jsonPath := filepath.Join(seriesDir, "index.json")
	if err := writeFileIfChanged(jsonPath, jsonData, logger); err != nil {
		return fmt.Errorf("failed to write series JSON index: %w", err)
	}

	logger.Debug("rendered series page",
		"variant", variant.Name, "series", series,
		"distributions", len(distributions), "artifact_paths", len(artifactPaths))
	return nil
}

// collectDistributionsFromVersion collects all distributions from a version model.
func collectDistributionsFromVersion(version VersionModel, distMap map[string]DistributionModel) {
	add := func(file *FileModel) {
		if file == nil {
			return
		}
		key := file.Filename + "|" + file.URL
		if _, exists := distMap[key]; !exists {
			distMap[key] = DistributionModel{
				Filename: file.Filename,
				URL:      file.URL,
				SHA256:   file.SHA256,
			}
		}
	}

	for _, release := range version.Releases {
		for _, artifact := range release.Artifacts {
			add(artifact.Archive)
			add(artifact.Manifest)
			add(artifact.Signature)
		}
	}
}

// collectArtifactPathsBySeries returns sorted tag-relative archive paths for
// the given variant and release series.
func collectArtifactPathsBySeries(variant VariantModel, series string) []string {
	paths := make(map[string]struct{})

	for _, platform := range variant.Platforms {
		for _, version := range platform.Versions {
			if seriesKey(version.Major, version.Minor) != series {
				continue
			}
			for _, release := range version.Releases {
				for _, artifact := range release.Artifacts {
					if artifact.Archive == nil || release.ReleaseTag == "" {
						continue
					}
					path := fmt.Sprintf("%s/%s", release.ReleaseTag, artifact.Archive.Filename)
					paths[path] = struct{}{}
				}
			}
		}
	}

	result := make([]string, 0, len(paths))
	for path := range paths {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// renderSimpleRootIndex renders /simple/index.html listing all variants.
func renderSimpleRootIndex(model *SiteModel, simpleDir string, logger *slog.Logger) error {
	names := make([]string, 0, len(model.Variants))
	for _, variant := range model.Variants {
		names = append(names, NormalizePackageName(variant.Name))
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Simple Index</title></head>\n<body>\n<h1>Available Variants</h1>\n\n")

	for _, name := range names {
		buf.WriteString(fmt.Sprintf("<a href=\"%s/\">%s</a><br/>\n", name, name))
	}

	buf.WriteString("\n</body>\n</html>\n")

	path := filepath.Join(simpleDir, "index.html")
	if err := writeFileIfChanged(path, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write simple root index: %w", err)
	}

	logger.Info("rendered simple root index", "path", path, "variants", len(names))
	return nil
}
