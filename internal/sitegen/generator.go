package sitegen

import (
	"context"
	"fmt"
	"os"

	"log/slog"
)

// Generator orchestrates the static site generation process.
type Generator struct {
	reader ReleaseReader
	logger *slog.Logger
}

// NewGenerator creates a Generator reading releases from the given source.
func NewGenerator(reader ReleaseReader, logger *slog.Logger) *Generator {
	return &Generator{
		reader: reader,
		logger: logger,
	}
}

// GenerateOptions contains options for site generation.
type GenerateOptions struct {
	OutputDir string
	DryRun    bool
}

// Generate builds the complete static site from the release database. It
// loads releases, builds the site model, and renders human pages plus the
// simple index.
func (g *Generator) Generate(ctx context.Context, opts GenerateOptions) error {
	if opts.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}

	g.logger.Info("starting site generation", "output_dir", opts.OutputDir, "dry_run", opts.DryRun)

	releases, err := LoadReleases(g.reader)
	if err != nil {
		return fmt.Errorf("failed to load releases: %w", err)
	}
	g.logger.Info("loaded releases", "count", len(releases))

	if len(releases) == 0 {
		g.logger.Warn("no releases found in database")
		return nil
	}

	model := BuildModel(releases)
	g.logger.Info("built site model", "variants", len(model.Variants))

	if opts.DryRun {
		g.logger.Info("dry-run mode: skipping file writes")
		return nil
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := RenderHumanPages(model, opts.OutputDir, g.logger); err != nil {
		return fmt.Errorf("failed to render human pages: %w", err)
	}
	g.logger.Info("rendered human-readable pages")

	if err := RenderSimpleIndex(model, opts.OutputDir, g.logger); err != nil {
		return fmt.Errorf("failed to render simple index: %w", err)
	}
	g.logger.Info("rendered simple index")

	g.logger.Info("site generation completed successfully")
	return nil
}
