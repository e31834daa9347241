// Package cli provides a unified command-line interface for the python build
// system. It supports YAML build registries and integrates source fetching,
// verification, building, reduction, and release publishing.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/buildpy-dev/buildpy/internal/analyze"
	"github.com/buildpy-dev/buildpy/internal/builder"
	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/endoflife"
	"github.com/buildpy-dev/buildpy/internal/fetch"
	gh "github.com/buildpy-dev/buildpy/internal/github"
	"github.com/buildpy-dev/buildpy/internal/gpg"
	"github.com/buildpy-dev/buildpy/internal/project"
	"github.com/buildpy-dev/buildpy/internal/scan"
	"github.com/buildpy-dev/buildpy/internal/shell"
	"github.com/buildpy-dev/buildpy/internal/storage"
	"github.com/buildpy-dev/buildpy/internal/version"
)

// NewApp creates and configures the main CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:     "buildpy",
		Usage:    "Build relocatable python interpreters from source",
		Version:  "1.0.0",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "buildpy.yaml",
				Usage:   "path to the build registry configuration file",
				EnvVars: []string{"BUILDPY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level for structured output (debug, info, warn, error)",
				EnvVars: []string{"BUILDPY_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "log output format (text, json)",
				EnvVars: []string{"BUILDPY_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			planCommand(),
			fetchCommand(),
			sizesCommand(),
			configCommand(),
			analyzeCommand(),
			reduceCommand(),
			autoreduceCommand(),
			ziplibCommand(),
			scanCommand(),
			eolCommand(),
			historyCommand(),
			publishCommand(),
		},
	}
}

// buildFlags are shared by the commands that construct a builder.
func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "python version to build (e.g. 3.13, 3.13.11)",
		},
		&cli.StringFlag{
			Name:    "variant",
			Aliases: []string{"V"},
			Usage:   "build variant (e.g. shared_max, static_mid, framework_max)",
		},
		&cli.BoolFlag{
			Name:    "optimize",
			Aliases: []string{"o"},
			Usage:   "enable profile-guided optimization during the build",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "build the interpreter with pydebug assertions",
		},
		&cli.BoolFlag{
			Name:    "precompile",
			Aliases: []string{"p"},
			Usage:   "precompile the stdlib to bytecode before zipping",
		},
		&cli.IntFlag{
			Name:    "optimize-bytecode",
			Aliases: []string{"b"},
			Value:   -1,
			Usage:   "bytecode optimization level -1..2",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "number of parallel build jobs",
		},
		&cli.StringSliceFlag{
			Name:    "install",
			Aliases: []string{"i"},
			Usage:   "python packages to install into the build",
		},
		&cli.StringSliceFlag{
			Name:    "cfg-opts",
			Aliases: []string{"a"},
			Usage:   "extra ./configure options (underscore form accepted)",
		},
		&cli.BoolFlag{
			Name:  "skip-ziplib",
			Usage: "skip stdlib compression",
		},
		&cli.StringFlag{
			Name:  "install-dir",
			Usage: "custom installation directory",
		},
	}
}

// loadRegistry loads the build registry, falling back to the defaults when
// the file does not exist, and applies command-line overrides.
func loadRegistry(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			return nil, err
		}
	}

	if v := c.String("version"); v != "" {
		cfg.Python.Version = v
	}
	if v := c.String("variant"); v != "" {
		cfg.Python.Variant = strings.ReplaceAll(v, "-", "_")
	}
	if c.IsSet("optimize") {
		cfg.Python.Optimize = c.Bool("optimize")
	}
	if c.IsSet("debug") {
		cfg.Python.Debug = c.Bool("debug")
	}
	if c.IsSet("precompile") {
		cfg.Python.Precompile = c.Bool("precompile")
	}
	if c.IsSet("jobs") {
		cfg.Python.Jobs = c.Int("jobs")
	}
	if pkgs := c.StringSlice("install"); len(pkgs) > 0 {
		cfg.Python.Packages = pkgs
	}
	if opts := c.StringSlice("cfg-opts"); len(opts) > 0 {
		cfg.Python.ConfigOptions = append(cfg.Python.ConfigOptions, opts...)
	}
	if err := version.Validate(cfg.Python.GetVersion()); err != nil {
		return nil, fmt.Errorf("invalid python version: %w", err)
	}
	return cfg, nil
}

func newLoggers(c *cli.Context) (*slog.Logger, *slog.Logger) {
	level := ParseLogLevelOrDefault(c.String("log-level"))
	return NewLoggersWithOutputFormat(level, c.String("log-format"))
}

func openStore(cfg *config.Config) (*storage.DB, error) {
	path := cfg.Global.Storage.DatabasePath
	if path == "" {
		path = "buildpy.db"
	}
	return storage.InitDB(storage.Config{DatabasePath: path, LogLevel: "warn"})
}

// newBuilder assembles the interpreter builder with the workspace, shell,
// downloader, and verifiers wired from the registry.
func newBuilder(c *cli.Context, cfg *config.Config, stdout, stderr *slog.Logger) (*builder.PythonBuilder, error) {
	proj, err := project.New("")
	if err != nil {
		return nil, err
	}
	sh := shell.New(nil, stdout)

	b, err := builder.NewPythonBuilder(cfg, proj, sh, stdout)
	if err != nil {
		return nil, err
	}
	b.OptimizeBytecode = c.Int("optimize-bytecode")
	b.SkipZiplib = c.Bool("skip-ziplib")
	b.InstallDir = c.String("install-dir")
	b.Downloader = fetch.NewDownloader(
		cfg.Global.GetConcurrency(), cfg.Global.GetDownloadTimeout(), stdout, stderr)
	return b, nil
}

// attachVerifiers downloads the companion checksum and signature files and
// wires the configured verification methods into the builder.
func attachVerifiers(ctx context.Context, cfg *config.Config, b *builder.PythonBuilder, stdout, stderr *slog.Logger) error {
	v := cfg.Python.Verification
	if !v.Enabled {
		return nil
	}

	if v.Methods.Checksum.Enabled {
		path, err := fetchCompanion(ctx, b, v.Methods.Checksum.FilePattern)
		if err != nil {
			stderr.Warn("checksum file unavailable, skipping checksum verification", "error", err)
		} else {
			b.Verifiers = append(b.Verifiers, &fetch.ChecksumVerifier{
				Algorithm:    v.Methods.Checksum.Algorithm,
				ChecksumPath: path,
			})
		}
	}

	if v.Methods.GPG.Enabled {
		path, err := fetchCompanion(ctx, b, v.Methods.GPG.SignaturePattern)
		if err != nil {
			return fmt.Errorf("signature file unavailable: %w", err)
		}
		verify, err := gpg.FileVerifier(v.Methods.GPG.KeyringDir)
		if err != nil {
			return err
		}
		b.Verifiers = append(b.Verifiers, &fetch.SignatureVerifier{
			SignaturePath: path,
			VerifyFunc:    verify,
		})
	}

	if v.Methods.ClamAV.Enabled {
		scanner := scan.NewDockerScanner(nil, v.Methods.ClamAV.Image, stdout)
		scanner.DeleteOnDetection = v.Methods.ClamAV.DeleteOnDetection
		b.Verifiers = append(b.Verifiers, &scanVerifier{scanner: scanner})
	}
	return nil
}

// fetchCompanion downloads a file derived from the source URL, such as a
// .sha256 or .asc companion, next to the archive.
func fetchCompanion(ctx context.Context, b *builder.PythonBuilder, pattern string) (string, error) {
	url := config.ExpandTemplate(pattern, map[string]string{
		"url":     b.DownloadURL(),
		"version": b.Target.Version,
		"archive": b.DownloadArchive(),
	})
	out := b.DownloadedArchive() + filepath.Ext(url)
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	results, err := b.Downloader.Process(ctx, []fetch.Task{{
		Component:  "python",
		Version:    b.Target.Version,
		URL:        url,
		OutputPath: out,
	}})
	if err != nil {
		return "", err
	}
	for _, res := range results {
		if !res.Success {
			return "", fmt.Errorf("download %s: %w", url, res.Error)
		}
	}
	return out, nil
}

// scanVerifier adapts the malware scanner to the download verifier interface.
type scanVerifier struct {
	scanner scan.Scanner
}

func (s *scanVerifier) Type() string { return "clamav" }

func (s *scanVerifier) Verify(ctx context.Context, result fetch.Result) error {
	res, err := s.scanner.Scan(ctx, result.LocalPath)
	if err != nil {
		return err
	}
	if !res.Clean {
		return fmt.Errorf("%w: %s", scan.ErrThreatDetected, strings.Join(res.Threats, ", "))
	}
	return nil
}

// warnIfEOL checks the build target against the endoflife.date lifecycle data.
func warnIfEOL(ctx context.Context, cfg *config.Config, stdout, stderr *slog.Logger) {
	eol := cfg.Python.EndOfLife
	if !eol.CheckEOL {
		return
	}
	product := eol.ProductName
	if product == "" {
		product = endoflife.DefaultProduct
	}
	client := endoflife.NewClient(endoflife.DefaultConfig())
	status, err := client.GetCycleStatus(ctx, product, cfg.Python.GetVersion())
	if err != nil {
		stderr.Warn("lifecycle check failed", "error", err)
		return
	}
	stdout.Info("release lifecycle",
		"cycle", status.Cycle,
		"status", status.LifecycleLabel(),
		"latest_patch", status.LatestPatch)
	if status.IsEOL && eol.WarnOnEOL {
		stderr.Warn("python version is end of life",
			"cycle", status.Cycle, "eol_date", status.EOLDate)
	}
	if status.LatestPatch != "" {
		if cmp, err := version.Compare(cfg.Python.GetVersion(), status.LatestPatch); err == nil && cmp < 0 {
			stderr.Warn("newer patch release available",
				"building", cfg.Python.GetVersion(), "latest", status.LatestPatch)
		}
	}
}

func buildCommand() *cli.Command {
	flags := append(buildFlags(),
		&cli.BoolFlag{
			Name:    "reset",
			Aliases: []string{"r"},
			Usage:   "reset the build workspace before building",
		},
		&cli.BoolFlag{
			Name:  "release",
			Usage: "publish the packaged build as a GitHub release",
		},
	)
	return &cli.Command{
		Name:   "build",
		Usage:  "Build a python interpreter from source",
		Flags:  flags,
		Action: runBuild,
	}
}

func runBuild(c *cli.Context) error {
	stdout, stderr := newLoggers(c)
	cfg, err := loadRegistry(c)
	if err != nil {
		return err
	}
	if c.Bool("release") {
		cfg.Python.Release.AutoRelease = true
	}

	b, err := newBuilder(c, cfg, stdout, stderr)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		stderr.Warn("build tracking disabled", "error", err)
	} else {
		b.Store = db
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				stderr.Warn("failed to close database", "error", closeErr)
			}
		}()
	}

	warnIfEOL(c.Context, cfg, stdout, stderr)

	if c.Bool("reset") {
		if err := b.Project.Reset(); err != nil {
			return fmt.Errorf("failed to reset workspace: %w", err)
		}
		stdout.Info("workspace reset", "root", b.Project.Root)
	}

	if err := attachVerifiers(c.Context, cfg, b, stdout, stderr); err != nil {
		return err
	}

	if err := b.Process(c.Context); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if cfg.Python.Release.AutoRelease {
		if db == nil {
			return fmt.Errorf("release publishing requires build tracking, but the database is unavailable")
		}
		return publishBuild(c, cfg, b, db, stdout, stderr)
	}
	return nil
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show the build plan without building anything",
		Flags: buildFlags(),
		Action: func(c *cli.Context) error {
			stdout, stderr := newLoggers(c)
			cfg, err := loadRegistry(c)
			if err != nil {
				return err
			}
			b, err := newBuilder(c, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			return b.WritePlan(os.Stdout)
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download and verify the python source archive without building",
		Flags: buildFlags(),
		Action: func(c *cli.Context) error {
			stdout, stderr := newLoggers(c)
			cfg, err := loadRegistry(c)
			if err != nil {
				return err
			}
			b, err := newBuilder(c, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			if err := attachVerifiers(c.Context, cfg, b, stdout, stderr); err != nil {
				return err
			}
			if err := b.Setup(c.Context); err != nil {
				return err
			}
			stdout.Info("source ready", "src", b.SrcDir())
			return nil
		},
	}
}

func sizesCommand() *cli.Command {
	return &cli.Command{
		Name:    "sizes",
		Aliases: []string{"size"},
		Usage:   "Show the size breakdown of a completed build",
		Flags:   buildFlags(),
		Action: func(c *cli.Context) error {
			stdout, stderr := newLoggers(c)
			cfg, err := loadRegistry(c)
			if err != nil {
				return err
			}
			b, err := newBuilder(c, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			return b.SizeReport(os.Stdout)
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Registry and extension configuration tools",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default build registry file",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("refusing to overwrite existing %s", path)
					}
					cfg := config.DefaultConfig()
					cfg.Metadata.Created = time.Now().UTC().Format(time.RFC3339)
					if err := config.SaveConfig(cfg, path); err != nil {
						return err
					}
					fmt.Fprintf(os.Stdout, "wrote %s\n", path)
					return nil
				},
			},
			{
				Name:  "setup",
				Usage: "Write the Setup.local extension configuration for a variant",
				Flags: append(buildFlags(),
					&cli.StringFlag{
						Name:  "out",
						Usage: "output path (default: patch/<variant>)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "write the raw extension tables as JSON instead",
					},
				),
				Action: writeSetupConfig,
			},
		},
	}
}

func writeSetupConfig(c *cli.Context) error {
	stdout, stderr := newLoggers(c)
	cfg, err := loadRegistry(c)
	if err != nil {
		return err
	}
	b, err := newBuilder(c, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	pycfg, err := b.ExtensionConfig()
	if err != nil {
		return err
	}

	out := c.String("out")
	if c.Bool("json") {
		if out == "" {
			out = b.Variant + ".json"
		}
		return pycfg.WriteJSON(b.Variant, out)
	}
	if out == "" {
		if err := os.MkdirAll("patch", 0o755); err != nil {
			return err
		}
		out = filepath.Join("patch", strings.ReplaceAll(b.Variant, "_", "."))
	}
	return pycfg.Write(b.Variant, out)
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze the stdlib footprint of python packages",
		ArgsUsage: "PKG [PKG...]",
		Flags: append(buildFlags(),
			&cli.StringFlag{
				Name:  "manifest-out",
				Usage: "write a reduction manifest to this path",
			},
		),
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	stdout, stderr := newLoggers(c)
	pkgs := c.Args().Slice()
	if len(pkgs) == 0 {
		return analyze.ErrNoPackages
	}

	cfg, err := loadRegistry(c)
	if err != nil {
		return err
	}
	b, err := newBuilder(c, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	pycfg, err := b.VariantConfig()
	if err != nil {
		return err
	}

	analyzer := analyze.New(nil, stdout)
	result, err := analyzer.AnalyzePackages(c.Context, pkgs, pycfg)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))

	if path := c.String("manifest-out"); path != "" {
		keep, err := loadKeepConfig(cfg, stderr)
		if err != nil {
			return err
		}
		manifest := analyze.NewManifest(result, b.Target.Version, b.Variant, pkgs, keep)
		if err := manifest.Write(path); err != nil {
			return err
		}
		stdout.Info("reduction manifest written", "path", path)
	}
	return nil
}

func loadKeepConfig(cfg *config.Config, stderr *slog.Logger) (config.KeepConfig, error) {
	if cfg.Global.KeepFile == "" {
		return nil, nil
	}
	keep, err := config.LoadKeepConfig(cfg.Global.KeepFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			stderr.Warn("keep file not found, ignoring", "path", cfg.Global.KeepFile)
			return nil, nil
		}
		return nil, err
	}
	return keep, nil
}

func reduceCommand() *cli.Command {
	return &cli.Command{
		Name:  "reduce",
		Usage: "Apply a reduction manifest to a completed build",
		Flags: append(buildFlags(),
			&cli.StringFlag{
				Name:     "manifest",
				Usage:    "path to the reduction manifest",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "copy-to",
				Usage: "copy the build tree here before reducing",
			},
			&cli.BoolFlag{
				Name:  "ziplib",
				Usage: "compress the stdlib after reducing",
			},
		),
		Action: runReduce,
	}
}

func runReduce(c *cli.Context) error {
	stdout, stderr := newLoggers(c)
	cfg, err := loadRegistry(c)
	if err != nil {
		return err
	}
	b, err := newBuilder(c, cfg, stdout, stderr)
	if err != nil {
		return err
	}

	manifest, err := analyze.LoadManifest(c.String("manifest"))
	if err != nil {
		return err
	}

	prefix := b.Prefix()
	if dest := c.String("copy-to"); dest != "" {
		stdout.Info("copying build tree", "from", prefix, "to", dest)
		if err := shell.CopyTree(prefix, dest); err != nil {
			return fmt.Errorf("failed to copy build tree: %w", err)
		}
		prefix = dest
		b.InstallDir = dest
	}

	stats, err := manifest.Apply(prefix, b.Ver(), stdout)
	if err != nil {
		return err
	}
	stdout.Info("reduction applied",
		"extensions_removed", stats.ExtensionsRemoved,
		"stdlib_removed", stats.StdlibRemoved,
		"bytes_saved", stats.BytesSaved)

	if c.Bool("ziplib") {
		return b.Ziplib(c.Context)
	}
	return nil
}

func autoreduceCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoreduce",
		Usage: "Build, install packages, reduce to their stdlib footprint, and compress",
		Flags: append(buildFlags(),
			&cli.StringFlag{
				Name:  "manifest-out",
				Usage: "also write the computed reduction manifest here",
			},
		),
		Action: runAutoreduce,
	}
}

// runAutoreduce runs the full reduction workflow: analyze the requested
// packages, build with them installed, strip everything the packages do not
// need, then compress the stdlib.
func runAutoreduce(c *cli.Context) error {
	stdout, stderr := newLoggers(c)
	cfg, err := loadRegistry(c)
	if err != nil {
		return err
	}
	pkgs := cfg.Python.Packages
	if len(pkgs) == 0 {
		return analyze.ErrNoPackages
	}

	b, err := newBuilder(c, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	pycfg, err := b.VariantConfig()
	if err != nil {
		return err
	}

	analyzer := analyze.New(nil, stdout)
	result, err := analyzer.AnalyzePackages(c.Context, pkgs, pycfg)
	if err != nil {
		return err
	}
	keep, err := loadKeepConfig(cfg, stderr)
	if err != nil {
		return err
	}
	manifest := analyze.NewManifest(result, b.Target.Version, b.Variant, pkgs, keep)
	if path := c.String("manifest-out"); path != "" {
		if err := manifest.Write(path); err != nil {
			return err
		}
	}

	// Build with the packages installed and the stdlib left uncompressed so
	// the reduction can see individual modules.
	b.SkipZiplib = true
	if err := attachVerifiers(c.Context, cfg, b, stdout, stderr); err != nil {
		return err
	}
	if err := b.Process(c.Context); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	stats, err := manifest.Apply(b.Prefix(), b.Ver(), stdout)
	if err != nil {
		return err
	}
	stdout.Info("reduction applied",
		"extensions_removed", stats.ExtensionsRemoved,
		"stdlib_removed", stats.StdlibRemoved,
		"bytes_saved", stats.BytesSaved)

	// Ziplib resets site-packages, so park the installed packages and put
	// them back afterwards.
	sitePackages := filepath.Join(b.StdlibDir(), "site-packages")
	parked := filepath.Join(b.Project.Build, "site-packages.saved")
	hasSitePackages := false
	if _, err := os.Stat(sitePackages); err == nil {
		if err := os.Rename(sitePackages, parked); err != nil {
			return fmt.Errorf("failed to park site-packages: %w", err)
		}
		hasSitePackages = true
	}

	if err := b.Ziplib(c.Context); err != nil {
		return err
	}

	if hasSitePackages {
		if err := os.RemoveAll(sitePackages); err != nil {
			return err
		}
		if err := os.Rename(parked, sitePackages); err != nil {
			return fmt.Errorf("failed to restore site-packages: %w", err)
		}
	}

	verifyImports(c.Context, b, pkgs, stderr)

	stdout.Info("autoreduce complete", "prefix", b.Prefix())
	return nil
}

// verifyImports checks that the installed packages still import after the
// reduction. Failures are reported but do not fail the run, since package
// names do not always match module names.
func verifyImports(ctx context.Context, b *builder.PythonBuilder, pkgs []string, stderr *slog.Logger) {
	for _, pkg := range pkgs {
		mod := strings.ReplaceAll(importName(pkg), "-", "_")
		if err := b.Shell.Cmd(ctx, "", b.Executable(), "-c", "import "+mod); err != nil {
			stderr.Warn("package does not import after reduction", "package", pkg, "module", mod)
		}
	}
}

// importName strips pip version specifiers and extras from a requirement.
func importName(pkg string) string {
	if i := strings.IndexAny(pkg, "[=<>!~; "); i >= 0 {
		return pkg[:i]
	}
	return pkg
}

func ziplibCommand() *cli.Command {
	return &cli.Command{
		Name:    "ziplib",
		Aliases: []string{"zip"},
		Usage:   "Compress the stdlib of an existing build",
		Flags:   buildFlags(),
		Action: func(c *cli.Context) error {
			stdout, stderr := newLoggers(c)
			cfg, err := loadRegistry(c)
			if err != nil {
				return err
			}
			b, err := newBuilder(c, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			if _, err := os.Stat(b.Prefix()); err != nil {
				return fmt.Errorf("build not found at %s", b.Prefix())
			}
			return b.Ziplib(c.Context)
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan downloaded archives for malware with ClamAV",
		ArgsUsage: "[PATH]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Value: scan.DefaultImage,
				Usage: "ClamAV Docker image",
			},
			&cli.BoolFlag{
				Name:  "delete",
				Usage: "delete the file when a threat is detected",
			},
		},
		Action: func(c *cli.Context) error {
			stdout, _ := newLoggers(c)
			if c.NArg() > 1 {
				return fmt.Errorf("expected at most one path to scan")
			}
			target := c.Args().First()
			if target == "" {
				proj, err := project.New("")
				if err != nil {
					return err
				}
				target = proj.Downloads
			}
			scanner := scan.NewDockerScanner(nil, c.String("image"), stdout)
			scanner.DeleteOnDetection = c.Bool("delete")
			result, err := scanner.Scan(c.Context, target)
			if err != nil {
				return err
			}
			if !result.Clean {
				return fmt.Errorf("%w: %s", scan.ErrThreatDetected,
					strings.Join(result.Threats, ", "))
			}
			stdout.Info("no threats found",
				"path", target,
				"engine", result.Metadata.EngineVersion)
			return nil
		},
	}
}

func eolCommand() *cli.Command {
	return &cli.Command{
		Name:  "eol",
		Usage: "Show the support lifecycle of a python release",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "python version to check (defaults to the registry target)",
			},
			&cli.StringFlag{
				Name:  "product",
				Value: endoflife.DefaultProduct,
				Usage: "endoflife.date product name",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadRegistry(c)
			if err != nil {
				return err
			}
			version := c.String("version")
			if version == "" {
				version = cfg.Python.GetVersion()
			}
			client := endoflife.NewClient(endoflife.DefaultConfig())
			status, err := client.GetCycleStatus(c.Context, c.String("product"), version)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded builds and downloads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "filter builds by python version",
			},
			&cli.BoolFlag{
				Name:  "downloads",
				Usage: "list downloads instead of builds",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "show summary statistics",
			},
		},
		Action: runHistory,
	}
}

func runHistory(c *cli.Context) error {
	cfg, err := loadRegistry(c)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var payload any
	switch {
	case c.Bool("stats"):
		payload, err = db.GetStats()
	case c.Bool("downloads"):
		payload, err = db.ListDownloads()
	case c.String("version") != "":
		payload, err = db.ListBuildsByVersion(c.String("version"))
	default:
		payload, err = db.ListBuilds()
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Publish a completed build as a GitHub release",
		Flags: append(buildFlags(),
			&cli.StringFlag{
				Name:  "repo",
				Usage: "GitHub repository in owner/repo form (overrides the registry)",
			},
			&cli.BoolFlag{
				Name:  "draft",
				Usage: "create the release as a draft",
			},
		),
		Action: func(c *cli.Context) error {
			stdout, stderr := newLoggers(c)
			cfg, err := loadRegistry(c)
			if err != nil {
				return err
			}
			if repo := c.String("repo"); repo != "" {
				cfg.Python.Release.GitHubRepository = repo
			}
			if c.Bool("draft") {
				cfg.Python.Release.DraftRelease = true
			}
			cfg.Python.Release.AutoRelease = true

			b, err := newBuilder(c, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return publishBuild(c, cfg, b, db, stdout, stderr)
		},
	}
}

// publishBuild packages the built prefix and pushes it to GitHub. It requires
// GITHUB_TOKEN, which GitHub Actions provides when the workflow has
// 'contents: write' permission.
func publishBuild(c *cli.Context, cfg *config.Config, b *builder.PythonBuilder, db DatabaseStore, stdout, stderr *slog.Logger) error {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN environment variable is required for release publishing")
	}

	client, err := gh.NewClient(token, cfg.Python.Release.GitHubRepository)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	publisher, err := NewPublisher(&cfg.Python.Release, client, db, stdout, stderr)
	if err != nil {
		return err
	}
	if publisher == nil {
		return fmt.Errorf("release publishing is disabled in the registry")
	}

	staging, err := storage.NewTempDir(b.Target.Version, b.Variant)
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if removeErr := staging.Remove(); removeErr != nil {
			stderr.Warn("failed to remove staging directory", "error", removeErr)
		}
	}()

	art := BuildArtifact{
		Version: b.Target.Version,
		Variant: b.Variant,
		Host:    b.Host,
		Prefix:  b.Prefix(),
	}
	release, err := publisher.Publish(art, &cfg.Python.Release, staging.Artifacts())
	if err != nil {
		return err
	}
	stdout.Info("release published", "tag", release.ReleaseTag, "url", release.ReleaseURL)
	return nil
}
