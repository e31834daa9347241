// Package main provides the buildpy-site command for generating a static
// download site from the release database.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/buildpy-dev/buildpy/internal/logger"
	"github.com/buildpy-dev/buildpy/internal/sitegen"
	"github.com/buildpy-dev/buildpy/internal/storage"
)

func main() {
	app := &cli.App{
		Name:  "buildpy-site",
		Usage: "Generate a static download site from the release database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Usage:    "path to SQLite database file",
				Required: true,
				EnvVars:  []string{"BUILDPY_SITE_DB"},
			},
			&cli.StringFlag{
				Name:     "out",
				Usage:    "output directory for generated HTML files",
				Required: true,
				EnvVars:  []string{"BUILDPY_SITE_OUT"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "validate without writing files",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"BUILDPY_SITE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "log output format (text, json)",
				EnvVars: []string{"BUILDPY_SITE_LOG_FORMAT"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logg, err := logger.New(c.String("log-level"), c.String("log-format"))
	if err != nil {
		return err
	}

	db, err := storage.InitDB(storage.Config{
		DatabasePath: c.String("db"),
		LogLevel:     "silent",
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logg.Error("failed to close database", "error", closeErr)
		}
	}()

	generator := sitegen.NewGenerator(db, logg)
	return generator.Generate(context.Background(), sitegen.GenerateOptions{
		OutputDir: c.String("out"),
		DryRun:    c.Bool("dry-run"),
	})
}
