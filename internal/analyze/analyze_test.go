package analyze

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/platform"
	"github.com/buildpy-dev/buildpy/internal/pyconfig"
	"github.com/buildpy-dev/buildpy/internal/shell"
)

func TestExtractImports(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "plain import",
			source: "import os\nimport sys\n",
			want:   []string{"os", "sys"},
		},
		{
			name:   "dotted import keeps top level",
			source: "import xml.etree.ElementTree\n",
			want:   []string{"xml"},
		},
		{
			name:   "from import",
			source: "from hashlib import sha256\nfrom collections.abc import Mapping\n",
			want:   []string{"hashlib", "collections"},
		},
		{
			name:   "multiple on one line",
			source: "import json, ssl , sqlite3\n",
			want:   []string{"json", "ssl", "sqlite3"},
		},
		{
			name:   "relative imports skipped",
			source: "from . import sibling\nfrom .utils import helper\n",
			want:   nil,
		},
		{
			name:   "indented imports inside functions",
			source: "def f():\n    import ctypes\n    return ctypes\n",
			want:   []string{"ctypes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImports(tt.source)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractImports() = %v, want %v", sortedKeys(got), tt.want)
			}
			for _, mod := range tt.want {
				if !got[mod] {
					t.Errorf("missing import %q in %v", mod, sortedKeys(got))
				}
			}
		})
	}
}

func testConfig() *pyconfig.Config {
	return &pyconfig.Config{
		Version:  "3.12.12",
		Core:     []string{"_abc", "_io", "posix", "time", "zlib"},
		Static:   []string{"_ssl", "_hashlib", "_decimal", "ossaudiodev"},
		Shared:   []string{"_ctypes"},
		Disabled: []string{"_sqlite3", "_lzma"},
	}
}

func TestClassify(t *testing.T) {
	imports := map[string]bool{
		"ssl":      true,
		"sqlite3":  true,
		"requests": true,
		"_opcode":  true,
	}

	result := classify(imports, testConfig())

	if !result.StdlibImports["ssl"] || !result.StdlibImports["sqlite3"] {
		t.Errorf("StdlibImports = %v", sortedKeys(result.StdlibImports))
	}
	if !result.ThirdParty["requests"] {
		t.Errorf("ThirdParty = %v", sortedKeys(result.ThirdParty))
	}
	if !result.RequiredExtensions["_ssl"] {
		t.Error("ssl import should require _ssl")
	}
	if !result.RequiredExtensions["_opcode"] {
		t.Error("private import should be treated as a required extension")
	}
	if !result.NeededButDisabled["_sqlite3"] {
		t.Errorf("NeededButDisabled = %v, want _sqlite3", sortedKeys(result.NeededButDisabled))
	}
	if !result.PotentiallyUnused["_decimal"] || !result.PotentiallyUnused["ossaudiodev"] {
		t.Errorf("PotentiallyUnused = %v", sortedKeys(result.PotentiallyUnused))
	}
	// Core modules never show up as unused
	if result.PotentiallyUnused["zlib"] || result.PotentiallyUnused["_io"] {
		t.Errorf("core modules flagged unused: %v", sortedKeys(result.PotentiallyUnused))
	}
}

// writeWheel builds a minimal wheel (zip) containing the given sources.
func writeWheel(t *testing.T, path string, sources map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range sources {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close wheel: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write wheel: %v", err)
	}
}

// wheelRunner pretends to be pip download by dropping a prepared wheel into
// the destination directory.
type wheelRunner struct {
	sources map[string]string
	err     error
}

func (r *wheelRunner) Run(_ context.Context, _, name string, args ...string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	// -d <dest> precedes the package list
	var dest string
	for i, arg := range args {
		if arg == "-d" && i+1 < len(args) {
			dest = args[i+1]
		}
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for fname, content := range r.sources {
		w, _ := zw.Create(fname)
		_, _ = io.WriteString(w, content)
	}
	_ = zw.Close()
	return nil, os.WriteFile(filepath.Join(dest, "pkg-1.0-py3-none-any.whl"), buf.Bytes(), 0644)
}

func TestAnalyzePackages(t *testing.T) {
	runner := &wheelRunner{sources: map[string]string{
		"pkg/__init__.py": "import ssl\nimport json\n",
		"pkg/net.py":      "from socket import create_connection\nimport requests\n",
		"pkg/data.txt":    "not python",
	}}
	analyzer := New(runner, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := analyzer.AnalyzePackages(context.Background(), []string{"pkg"}, testConfig())
	if err != nil {
		t.Fatalf("AnalyzePackages() error = %v", err)
	}

	if result.FilesAnalyzed != 2 {
		t.Errorf("FilesAnalyzed = %d, want 2", result.FilesAnalyzed)
	}
	for _, mod := range []string{"ssl", "json", "socket"} {
		if !result.StdlibImports[mod] {
			t.Errorf("missing stdlib import %q", mod)
		}
	}
	if !result.ThirdParty["requests"] {
		t.Error("requests should be classified as third-party")
	}
}

func TestAnalyzePackagesNoPackages(t *testing.T) {
	analyzer := New(&shell.MockRunner{}, nil)
	_, err := analyzer.AnalyzePackages(context.Background(), nil, testConfig())
	if !errors.Is(err, ErrNoPackages) {
		t.Errorf("error = %v, want ErrNoPackages", err)
	}
}

func TestAnalyzePackagesPipUnavailable(t *testing.T) {
	runner := &wheelRunner{err: errors.New("command not found")}
	analyzer := New(runner, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := analyzer.AnalyzePackages(context.Background(), []string{"pkg"}, testConfig())
	if !errors.Is(err, ErrPipUnavailable) {
		t.Errorf("error = %v, want ErrPipUnavailable", err)
	}
}

func TestScanWheel(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pkg.whl")
	writeWheel(t, path, map[string]string{
		"pkg/a.py": "import hashlib\n",
		"pkg/b.py": "import decimal\n",
	})

	imports := make(map[string]bool)
	count, err := scanWheel(path, imports)
	if err != nil {
		t.Fatalf("scanWheel() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if !imports["hashlib"] || !imports["decimal"] {
		t.Errorf("imports = %v", sortedKeys(imports))
	}
}

func TestNewManifestHonorsKeepList(t *testing.T) {
	result := classify(map[string]bool{"ssl": true}, testConfig())

	keep := config.KeepConfig{"all": []any{"_decimal"}}
	manifest := NewManifest(result, "3.12.12", "static_max", []string{"pkg"}, keep)

	for _, mod := range manifest.Reductions.ExtensionsToRemove {
		if mod == "_decimal" {
			t.Error("kept module _decimal listed for removal")
		}
	}

	found := false
	for _, mod := range manifest.Reductions.ExtensionsToRemove {
		if mod == "ossaudiodev" {
			found = true
		}
	}
	if !found {
		t.Errorf("ossaudiodev missing from removals: %v", manifest.Reductions.ExtensionsToRemove)
	}

	// tkinter was not imported, so its stdlib paths are removable
	foundTk := false
	for _, p := range manifest.Reductions.StdlibToRemove {
		if p == "tkinter/" {
			foundTk = true
		}
	}
	if !foundTk {
		t.Errorf("tkinter/ missing from stdlib removals: %v", manifest.Reductions.StdlibToRemove)
	}
}

func TestNewManifestWarnsOnDisabled(t *testing.T) {
	result := classify(map[string]bool{"sqlite3": true}, testConfig())

	manifest := NewManifest(result, "3.12.12", "static_max", nil, config.KeepConfig{})
	if len(manifest.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one entry", manifest.Warnings)
	}
	if manifest.Warnings[0].Type != "required_but_disabled" {
		t.Errorf("warning type = %q", manifest.Warnings[0].Type)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	result := classify(map[string]bool{"ssl": true}, testConfig())
	manifest := NewManifest(result, "3.12.12", "static_max", []string{"pkg"}, config.KeepConfig{})

	path := filepath.Join(t.TempDir(), "out", "reduction-manifest.json")
	if err := manifest.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if loaded.PythonVersion != "3.12.12" || loaded.Variant != "static_max" {
		t.Errorf("loaded manifest = %+v", loaded)
	}
	if len(loaded.Reductions.ExtensionPatterns) != len(manifest.Reductions.ExtensionPatterns) {
		t.Error("extension patterns did not survive the round trip")
	}
}

func TestApply(t *testing.T) {
	prefix := t.TempDir()
	libDir := filepath.Join(prefix, "lib", "python3.12")
	dynload := filepath.Join(libDir, "lib-dynload")
	if err := os.MkdirAll(dynload, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(libDir, "tkinter"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files := map[string]string{
		filepath.Join(dynload, "_decimal.cpython-312-x86_64-linux-gnu.so"): "binary",
		filepath.Join(dynload, "_ssl.cpython-312-x86_64-linux-gnu.so"):     "binary",
		filepath.Join(libDir, "tkinter", "__init__.py"):                    "import _tkinter",
		filepath.Join(libDir, "turtle.py"):                                 "import tkinter",
		filepath.Join(libDir, "os.py"):                                     "import sys",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	manifest := &Manifest{
		Reductions: Reductions{
			ExtensionPatterns: []string{"_decimal.cpython-*.so"},
			StdlibToRemove:    []string{"tkinter/", "turtle.py"},
		},
	}

	stats, err := manifest.Apply(prefix, "3.12", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if stats.ExtensionsRemoved != 1 {
		t.Errorf("ExtensionsRemoved = %d, want 1", stats.ExtensionsRemoved)
	}
	if stats.StdlibRemoved != 2 {
		t.Errorf("StdlibRemoved = %d, want 2", stats.StdlibRemoved)
	}
	if stats.BytesSaved == 0 {
		t.Error("BytesSaved = 0, want > 0")
	}

	// _ssl and os.py survive
	if _, err := os.Stat(filepath.Join(dynload, "_ssl.cpython-312-x86_64-linux-gnu.so")); err != nil {
		t.Error("_ssl extension should survive")
	}
	if _, err := os.Stat(filepath.Join(libDir, "os.py")); err != nil {
		t.Error("os.py should survive")
	}
	if _, err := os.Stat(filepath.Join(libDir, "tkinter")); !os.IsNotExist(err) {
		t.Error("tkinter directory should be removed")
	}
}

func TestApplyMissingLibDir(t *testing.T) {
	manifest := &Manifest{}
	if _, err := manifest.Apply(t.TempDir(), "3.12", nil); err == nil {
		t.Error("Apply() should fail when lib dir is missing")
	}
}

func TestClassifyAgainstShapedConfig(t *testing.T) {
	cfg, err := pyconfig.ForVersion("3.13.11", "shared", platform.Host{OS: "linux", Arch: "x64"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	imports := map[string]bool{"ssl": true, "hashlib": true}

	base := classify(imports, cfg)
	if base.NeededButDisabled["_ssl"] {
		t.Fatal("_ssl disabled in the unshaped tables; base config changed")
	}

	if err := cfg.ApplyVariant("shared_mid"); err != nil {
		t.Fatal(err)
	}
	result := classify(imports, cfg)
	if !result.NeededButDisabled["_ssl"] || !result.NeededButDisabled["_hashlib"] {
		t.Errorf("NeededButDisabled = %v, want _ssl and _hashlib",
			sortedKeys(result.NeededButDisabled))
	}
}
