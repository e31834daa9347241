package sitegen

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"log/slog"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/style.css
var assetsFS embed.FS

// RenderHumanPages generates human-readable HTML pages for browsing builds.
// Creates directory structure: /<variant>/<os>/<major.minor>/<version>/index.html
func RenderHumanPages(model *SiteModel, outDir string, logger *slog.Logger) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	if err := writeSiteAssets(outDir, logger); err != nil {
		return fmt.Errorf("failed to write site assets: %w", err)
	}

	if err := renderRootIndex(tmpl, model, outDir, logger); err != nil {
		return fmt.Errorf("failed to render root index: %w", err)
	}

	for _, variant := range model.Variants {
		if err := renderVariantPages(tmpl, variant, outDir, logger); err != nil {
			return fmt.Errorf("failed to render variant pages for %s: %w", variant.Name, err)
		}
	}
	return nil
}

// writeSiteAssets writes embedded static assets (like CSS) to the output directory.
func writeSiteAssets(outDir string, logger *slog.Logger) error {
	assetsDir := filepath.Join(outDir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}

	data, err := fs.ReadFile(assetsFS, "assets/style.css")
	if err != nil {
		return fmt.Errorf("failed to read embedded style.css: %w", err)
	}

	path := filepath.Join(assetsDir, "style.css")
	if err := writeFileIfChanged(path, data, logger); err != nil {
		return fmt.Errorf("failed to write style.css: %w", err)
	}
	return nil
}

// loadTemplates loads all HTML templates with helper functions.
func loadTemplates() (*template.Template, error) {
	tmpl := template.New("").Funcs(template.FuncMap{
		"formatBytes": formatBytes,
	})

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}
		if _, err := tmpl.New(entry.Name()).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
		}
	}
	return tmpl, nil
}

// renderRootIndex renders the root index.html listing all variants.
func renderRootIndex(tmpl *template.Template, model *SiteModel, outDir string, logger *slog.Logger) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "root.tmpl", model); err != nil {
		return fmt.Errorf("failed to execute root template: %w", err)
	}

	path := filepath.Join(outDir, "index.html")
	if err := writeFileIfChanged(path, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write root index: %w", err)
	}

	logger.Info("rendered root index", "path", path)
	return nil
}

// renderVariantPages renders all pages for a build variant.
func renderVariantPages(tmpl *template.Template, variant VariantModel, outDir string, logger *slog.Logger) error {
	variantDir := filepath.Join(outDir, variant.Name)
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return fmt.Errorf("failed to create variant directory: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "variant.tmpl", variant); err != nil {
		return fmt.Errorf("failed to execute variant template: %w", err)
	}

	variantIndexPath := filepath.Join(variantDir, "index.html")
	if err := writeFileIfChanged(variantIndexPath, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write variant index: %w", err)
	}

	for _, platform := range variant.Platforms {
		if err := renderOSPages(tmpl, variant.Name, platform, variantDir, logger); err != nil {
			return fmt.Errorf("failed to render OS pages for %s/%s: %w", variant.Name, platform.OS, err)
		}
	}
	return nil
}

// seriesKey formats the minor release series, e.g. "3.13".
func seriesKey(major, minor int) string {
	return fmt.Sprintf("%d.%d", major, minor)
}

// renderOSPages renders all pages for an OS within a variant. Versions are
// grouped by minor release series since python majors change rarely.
func renderOSPages(tmpl *template.Template, variantName string, platform PlatformModel, variantDir string, logger *slog.Logger) error {
	osDir := filepath.Join(variantDir, platform.OS)
	if err := os.MkdirAll(osDir, 0o755); err != nil {
		return fmt.Errorf("failed to create OS directory: %w", err)
	}

	type seriesGroup struct {
		Series   string
		Versions []VersionModel
	}

	seriesMap := make(map[string][]VersionModel)
	var seriesOrder []string
	for _, version := range platform.Versions {
		key := seriesKey(version.Major, version.Minor)
		if _, seen := seriesMap[key]; !seen {
			seriesOrder = append(seriesOrder, key)
		}
		seriesMap[key] = append(seriesMap[key], version)
	}
	// Versions arrive newest first, so insertion order already descends.
	var versionsBySeries []seriesGroup
	for _, key := range seriesOrder {
		versionsBySeries = append(versionsBySeries, seriesGroup{
			Series:   key,
			Versions: seriesMap[key],
		})
	}

	osData := struct {
		Variant          string
		OS               string
		VersionsBySeries []seriesGroup
	}{
		Variant:          variantName,
		OS:               platform.OS,
		VersionsBySeries: versionsBySeries,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "os.tmpl", osData); err != nil {
		return fmt.Errorf("failed to execute OS template: %w", err)
	}

	osIndexPath := filepath.Join(osDir, "index.html")
	if err := writeFileIfChanged(osIndexPath, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write OS index: %w", err)
	}

	for _, version := range platform.Versions {
		if err := renderVersionPage(tmpl, variantName, platform.OS, version, osDir, logger); err != nil {
			return fmt.Errorf("failed to render version page for %s/%s/%s: %w", variantName, platform.OS, version.Version, err)
		}
	}
	return nil
}

// renderVersionPage renders the version page with artifacts.
func renderVersionPage(tmpl *template.Template, variantName, osName string, version VersionModel, osDir string, logger *slog.Logger) error {
	versionDir := filepath.Join(osDir, seriesKey(version.Major, version.Minor), version.Version)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}

	versionData := struct {
		Variant  string
		OS       string
		Series   string
		Version  string
		Releases []ReleaseModel
	}{
		Variant:  variantName,
		OS:       osName,
		Series:   seriesKey(version.Major, version.Minor),
		Version:  version.Version,
		Releases: version.Releases,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "version.tmpl", versionData); err != nil {
		return fmt.Errorf("failed to execute version template: %w", err)
	}

	versionIndexPath := filepath.Join(versionDir, "index.html")
	if err := writeFileIfChanged(versionIndexPath, buf.Bytes(), logger); err != nil {
		return fmt.Errorf("failed to write version index: %w", err)
	}
	return nil
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
