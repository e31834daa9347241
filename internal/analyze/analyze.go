// Package analyze inspects the imports of third-party python packages to
// determine which stdlib modules and C extensions a build actually needs.
// The results drive reduction manifests that prune unused modules from an
// installed build.
package analyze

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/buildpy-dev/buildpy/internal/pyconfig"
	"github.com/buildpy-dev/buildpy/internal/shell"
)

// Sentinel errors
var (
	ErrNoPackages     = errors.New("no packages specified for analysis")
	ErrPipUnavailable = errors.New("pip is not available")
)

// Result holds the outcome of a package dependency analysis.
type Result struct {
	StdlibImports      map[string]bool
	ThirdParty         map[string]bool
	RequiredExtensions map[string]bool
	NeededButDisabled  map[string]bool
	PotentiallyUnused  map[string]bool
	FilesAnalyzed      int
}

// Analyzer downloads packages with pip and scans their python sources for
// import statements.
type Analyzer struct {
	runner shell.Runner
	logger *slog.Logger
}

// New creates an analyzer. A nil runner gets a real one, a nil logger gets
// the default logger.
func New(runner shell.Runner, logger *slog.Logger) *Analyzer {
	if runner == nil {
		runner = shell.NewRealRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{runner: runner, logger: logger}
}

var (
	importRe     = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	importFromRe = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s`)
)

// ExtractImports returns the top-level module names imported by python
// source code. Only static import statements are detected; runtime imports
// through importlib are invisible to this scan.
func ExtractImports(source string) map[string]bool {
	imports := make(map[string]bool)

	for _, line := range strings.Split(source, "\n") {
		if m := importFromRe.FindStringSubmatch(line); m != nil {
			if top := topLevel(m[1]); top != "" {
				imports[top] = true
			}
			continue
		}
		if m := importRe.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				if top := topLevel(strings.TrimSpace(name)); top != "" {
					imports[top] = true
				}
			}
		}
	}

	return imports
}

func topLevel(module string) string {
	if module == "" || strings.HasPrefix(module, ".") {
		return ""
	}
	if i := strings.Index(module, "."); i >= 0 {
		return module[:i]
	}
	return module
}

// AnalyzePackages downloads the given packages without their dependencies,
// extracts every python source file, and classifies the imports against the
// build configuration.
func (a *Analyzer) AnalyzePackages(ctx context.Context, pkgs []string, cfg *pyconfig.Config) (*Result, error) {
	if len(pkgs) == 0 {
		return nil, ErrNoPackages
	}

	tmpDir, err := os.MkdirTemp("", "buildpy-analyze-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := a.download(ctx, tmpDir, pkgs); err != nil {
		return nil, err
	}

	allImports := make(map[string]bool)
	filesAnalyzed := 0

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(tmpDir, entry.Name())
		a.logger.Debug("analyzing archive", "name", entry.Name())

		var count int
		switch {
		case strings.HasSuffix(entry.Name(), ".whl") || strings.HasSuffix(entry.Name(), ".zip"):
			count, err = scanWheel(path, allImports)
		case strings.HasSuffix(entry.Name(), ".tar.gz") || strings.HasSuffix(entry.Name(), ".tgz"):
			count, err = scanTarball(path, allImports)
		default:
			continue
		}
		if err != nil {
			a.logger.Warn("could not analyze archive", "name", entry.Name(), "error", err)
			continue
		}
		filesAnalyzed += count
	}

	result := classify(allImports, cfg)
	result.FilesAnalyzed = filesAnalyzed
	return result, nil
}

// download fetches packages with pip, trying pip3, pip, and python3 -m pip
// in that order.
func (a *Analyzer) download(ctx context.Context, dest string, pkgs []string) error {
	commands := [][]string{
		{"pip3", "download", "--no-deps", "-d", dest},
		{"pip", "download", "--no-deps", "-d", dest},
		{"python3", "-m", "pip", "download", "--no-deps", "-d", dest},
	}

	var lastErr error
	for _, cmd := range commands {
		args := append(cmd[1:], pkgs...)
		if _, err := a.runner.Run(ctx, "", cmd[0], args...); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrPipUnavailable, lastErr)
}

// scanWheel reads python sources from a wheel (a zip archive).
func scanWheel(path string, imports map[string]bool) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = zr.Close() }()

	count := 0
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".py") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			continue
		}
		for mod := range ExtractImports(string(data)) {
			imports[mod] = true
		}
		count++
	}
	return count, nil
}

// scanTarball reads python sources from a source distribution tarball.
func scanTarball(path string, imports map[string]bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".py") {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			continue
		}
		for mod := range ExtractImports(string(data)) {
			imports[mod] = true
		}
		count++
	}
	return count, nil
}

// classify splits the observed imports into stdlib and third-party sets and
// compares the required C extensions with what the configuration enables.
func classify(allImports map[string]bool, cfg *pyconfig.Config) *Result {
	result := &Result{
		StdlibImports:      make(map[string]bool),
		ThirdParty:         make(map[string]bool),
		RequiredExtensions: make(map[string]bool),
		NeededButDisabled:  make(map[string]bool),
		PotentiallyUnused:  make(map[string]bool),
	}

	for mod := range allImports {
		if stdlibModules[mod] {
			result.StdlibImports[mod] = true
		} else {
			result.ThirdParty[mod] = true
		}
	}

	for mod := range result.StdlibImports {
		for _, ext := range stdlibToExtension[mod] {
			result.RequiredExtensions[ext] = true
		}
		// Private imports are C extensions themselves
		if strings.HasPrefix(mod, "_") {
			result.RequiredExtensions[mod] = true
		}
	}

	if cfg == nil {
		return result
	}

	enabled := newSet(cfg.Core...)
	for _, name := range cfg.Static {
		enabled[name] = true
	}
	for _, name := range cfg.Shared {
		enabled[name] = true
	}
	disabled := newSet(cfg.Disabled...)

	for ext := range result.RequiredExtensions {
		if disabled[ext] {
			result.NeededButDisabled[ext] = true
		}
	}

	for mod := range enabled {
		if !result.RequiredExtensions[mod] && !coreModules[mod] {
			result.PotentiallyUnused[mod] = true
		}
	}

	return result
}

// sortedKeys returns set members in sorted order for stable output.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
