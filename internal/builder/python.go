package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/fetch"
	"github.com/buildpy-dev/buildpy/internal/platform"
	"github.com/buildpy-dev/buildpy/internal/project"
	"github.com/buildpy-dev/buildpy/internal/pyconfig"
	"github.com/buildpy-dev/buildpy/internal/shell"
	"github.com/buildpy-dev/buildpy/internal/storage"
)

// ErrUnknownBuildType is returned for a variant whose build type is not one
// of static, shared, or framework.
var ErrUnknownBuildType = errors.New("unknown build type")

// defaultRemovePatterns lists what gets pruned from the installed stdlib
// after a build.
var defaultRemovePatterns = []string{
	"*.exe",
	"*config-3*",
	"*tcl*",
	"*tdbc*",
	"*tk*",
	"__phello__",
	"__pycache__",
	"_codecs_*.so",
	"_test*",
	"_tk*",
	"_xx*.so",
	"distutils",
	"idlelib",
	"lib2to3",
	"libpython*",
	"LICENSE.txt",
	"pkgconfig",
	"pydoc_data",
	"site-packages",
	"test",
	"Tk*",
	"turtle*",
	"venv",
	"xx*.so",
}

// PythonBuilder builds a python interpreter from source. The pipeline is
// deps, setup, configure, build, install, clean, ziplib, packages, and a
// post-process step that makes shared and framework builds relocatable.
type PythonBuilder struct {
	Target

	Variant          string // e.g. shared_max
	BuildType        string // static, shared, or framework
	SizeType         string // max, mid, tiny, vanilla, bootstrap
	Optimize         bool
	Debug            bool
	Precompile       bool
	OptimizeBytecode int // compileall -o level, -1 for the default
	Packages         []string
	ConfigOpts       []string // extra configure switches, underscore form accepted
	Jobs             int
	SkipZiplib       bool
	InstallDir       string // overrides the default install location
	Host             platform.Host

	Deps       []DepBuilder
	Downloader *fetch.Downloader
	Verifiers  []fetch.Verifier
	Store      storage.Store

	configOptions  []string
	removePatterns []string
	cfg            *pyconfig.Config
}

// NewPythonBuilder assembles the interpreter build from the registry. The
// dependency recipes are wired from the registry's deps table.
func NewPythonBuilder(cfg *config.Config, proj *project.Project, sh *shell.Shell, logger *slog.Logger) (*PythonBuilder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	variant := cfg.Python.GetVariant()
	buildType, sizeType, err := pyconfig.SplitVariant(variant)
	if err != nil {
		return nil, err
	}

	download := cfg.Python.Download
	if download.ArchiveTemplate == "" {
		download.ArchiveTemplate = "Python-{version}.tar.xz"
	}
	if download.URLTemplate == "" {
		download.URLTemplate = "https://www.python.org/ftp/python/{version}/{archive}"
	}

	b := &PythonBuilder{
		Target: NewTarget("Python", config.Dependency{
			Version:         cfg.Python.GetVersion(),
			RepoURL:         "https://github.com/python/cpython.git",
			ArchiveTemplate: download.ArchiveTemplate,
			URLTemplate:     download.URLTemplate,
		}, proj, sh, logger),
		Variant:          variant,
		BuildType:        buildType,
		SizeType:         sizeType,
		Optimize:         cfg.Python.Optimize,
		Debug:            cfg.Python.Debug,
		Precompile:       cfg.Python.Precompile,
		OptimizeBytecode: -1,
		Packages:         append([]string(nil), cfg.Python.Packages...),
		ConfigOpts:       append([]string(nil), cfg.Python.ConfigOptions...),
		Jobs:             cfg.Python.Jobs,
		Host:             platform.Current(),
	}
	if b.Jobs < 1 {
		b.Jobs = 1
	}

	if dep, ok := cfg.GetDependency("openssl"); ok {
		b.Deps = append(b.Deps, NewOpensslBuilder(dep, proj, sh, logger))
	}
	if dep, ok := cfg.GetDependency("bzip2"); ok {
		b.Deps = append(b.Deps, NewBzip2Builder(dep, proj, sh, logger))
	}
	if dep, ok := cfg.GetDependency("xz"); ok {
		b.Deps = append(b.Deps, NewXzBuilder(dep, proj, sh, logger))
	}
	return b, nil
}

// Prefix returns the install prefix for this build. Framework builds live
// inside the framework bundle, an explicit InstallDir is used directly, and
// the default is install/python-<buildtype> so variants do not clobber each
// other.
func (b *PythonBuilder) Prefix() string {
	installDir := b.InstallDir
	if b.BuildType == "framework" {
		if installDir == "" {
			installDir = b.Project.Install
		}
		return filepath.Join(installDir, "Python.framework", "Versions", b.Ver())
	}
	if installDir != "" {
		return installDir
	}
	return b.Project.InstallPrefix("python-" + b.BuildType)
}

// Executable returns the path of the built python3 binary.
func (b *PythonBuilder) Executable() string {
	return filepath.Join(b.Prefix(), "bin", "python3")
}

// LibName returns the library stem, e.g. "libpython3.11".
func (b *PythonBuilder) LibName() string {
	return "lib" + b.NameVer()
}

// DylibName returns the platform shared library filename.
func (b *PythonBuilder) DylibName() (string, error) {
	return b.Host.DylibName(b.LibName())
}

// StdlibDir returns the installed stdlib directory, lib/python3.X.
func (b *PythonBuilder) StdlibDir() string {
	return filepath.Join(b.Prefix(), "lib", b.NameVer())
}

// ExtensionConfig returns the Setup.local configuration for this build.
func (b *PythonBuilder) ExtensionConfig() (*pyconfig.Config, error) {
	if b.cfg != nil {
		return b.cfg, nil
	}
	cfg, err := pyconfig.ForVersion(b.Target.Version, b.BuildType, b.Host, b.Logger)
	if err != nil {
		return nil, err
	}
	b.cfg = cfg
	return cfg, nil
}

// VariantConfig returns the extension configuration shaped for the active
// build variant, so module dispositions match what Configure will write.
func (b *PythonBuilder) VariantConfig() (*pyconfig.Config, error) {
	cfg, err := b.ExtensionConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyVariant(b.Variant); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Setup downloads, verifies, and extracts the interpreter source.
func (b *PythonBuilder) Setup(ctx context.Context) error {
	b.Host.SetupEnvironment()
	if err := b.Project.Setup(); err != nil {
		return err
	}

	if !b.ArchiveIsDownloaded() {
		if err := b.download(ctx); err != nil {
			return err
		}
	}

	result := fetch.Result{
		Task: &fetch.Task{
			Component: "python",
			Version:   b.Target.Version,
			URL:       b.DownloadURL(),
		},
		LocalPath: b.DownloadedArchive(),
		Success:   true,
	}
	for _, v := range b.Verifiers {
		if err := v.Verify(ctx, result); err != nil {
			return fmt.Errorf("%s verification: %w", v.Type(), err)
		}
		b.Logger.Info("source archive verified", "method", v.Type())
	}

	if _, err := os.Stat(b.SrcDir()); err == nil {
		if err := shell.RemoveAll(b.SrcDir()); err != nil {
			return err
		}
	}
	if err := b.Shell.Extract(ctx, b.DownloadedArchive(), b.Project.Src); err != nil {
		return err
	}
	if b.Shell.DryRun {
		return nil
	}
	if _, err := os.Stat(b.SrcDir()); err != nil {
		return fmt.Errorf("%w: no source at %s after extracting %s",
			ErrExtraction, b.SrcDir(), b.DownloadArchive())
	}
	return nil
}

func (b *PythonBuilder) download(ctx context.Context) error {
	dl := b.Downloader
	if dl == nil {
		dl = fetch.NewDownloader(1, 5*time.Minute, b.Logger, b.Logger)
	}
	results, err := dl.Process(ctx, []fetch.Task{{
		Component:  "python",
		Version:    b.Target.Version,
		URL:        b.DownloadURL(),
		OutputPath: b.DownloadedArchive(),
	}})
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.Success {
			return fmt.Errorf("%w: %s: %v", ErrDownloadFailed, b.DownloadURL(), res.Error)
		}
		if b.Store != nil {
			b.recordDownload(res)
		}
	}
	return nil
}

func (b *PythonBuilder) recordDownload(res fetch.Result) {
	major, minor, patch, err := storage.ParseSemver(b.Target.Version)
	if err != nil {
		b.Logger.Warn("skipping download record", "error", err)
		return
	}
	rec := &storage.Download{
		Component:          "python",
		Version:            b.Target.Version,
		VersionMajor:       major,
		VersionMinor:       minor,
		VersionPatch:       patch,
		Filename:           b.DownloadArchive(),
		FileSize:           res.Size,
		SourceURL:          b.DownloadURL(),
		DownloadedAt:       time.Now(),
		VerificationStatus: "pending",
	}
	if err := b.Store.RecordDownload(rec); err != nil {
		b.Logger.Warn("failed to record download", "error", err)
	}
}

// configureOptions computes the full configure switch list for this build.
func (b *PythonBuilder) configureOptions() ([]string, error) {
	opts := []string{"--disable-test-modules"}
	switch b.BuildType {
	case "shared":
		opts = append(opts, "--enable-shared", "--without-static-libpython")
	case "framework":
		installDir := b.InstallDir
		if installDir == "" {
			installDir = b.Project.Install
		}
		opts = append(opts, "--enable-framework="+installDir)
	case "static":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuildType, b.BuildType)
	}

	if b.Optimize {
		opts = append(opts, "--enable-optimizations")
	}

	if b.Debug {
		opts = append(opts, "--with-pydebug")
	}

	if len(b.Packages) == 0 {
		opts = append(opts, "--without-ensurepip")
		b.removePatterns = append(b.RemovePatterns(), "ensurepip")
	}

	for _, raw := range b.ConfigOpts {
		opt := strings.ReplaceAll(raw, "_", "-")
		if !strings.HasPrefix(opt, "--") {
			opt = "--" + opt
		}
		if !contains(opts, opt) {
			opts = append(opts, opt)
		}
	}
	return opts, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RemovePatterns returns the active stdlib prune list.
func (b *PythonBuilder) RemovePatterns() []string {
	if b.removePatterns == nil {
		b.removePatterns = append([]string(nil), defaultRemovePatterns...)
	}
	return b.removePatterns
}

// Configure writes Modules/Setup.local for the variant and runs ./configure.
func (b *PythonBuilder) Configure(ctx context.Context) error {
	b.Logger.Info("configuring python",
		"version", b.Target.Version, "build_type", b.BuildType)

	opts, err := b.configureOptions()
	if err != nil {
		return err
	}
	b.configOptions = opts

	cfg, err := b.ExtensionConfig()
	if err != nil {
		return err
	}
	if !b.Shell.DryRun {
		setupLocal := filepath.Join(b.SrcDir(), "Modules", "Setup.local")
		if err := cfg.Write(b.Variant, setupLocal); err != nil {
			return err
		}
	}

	args := append([]string{"--prefix=" + b.Prefix()}, opts...)
	return b.Shell.Cmd(ctx, b.SrcDir(), "./configure", args...)
}

// Build compiles the configured source tree.
func (b *PythonBuilder) Build(ctx context.Context) error {
	b.Logger.Info("building python", "version", b.Target.Version, "jobs", b.Jobs)
	return b.Shell.Cmd(ctx, b.SrcDir(), "make", "-j"+strconv.Itoa(b.Jobs))
}

// Install removes any previous install and runs make install.
func (b *PythonBuilder) Install(ctx context.Context) error {
	if !b.Shell.DryRun {
		if err := shell.RemoveAll(b.Prefix()); err != nil {
			return err
		}
	}
	return b.Shell.Cmd(ctx, b.SrcDir(), "make", "install")
}

// Clean prunes test suites, tkinter remnants, and developer tools from the
// installed tree.
func (b *PythonBuilder) Clean() error {
	if b.Shell.DryRun {
		return nil
	}
	if err := shell.GlobRemove(b.StdlibDir(), b.RemovePatterns()...); err != nil {
		return err
	}
	bins := []string{
		"2to3",
		"idle3",
		"idle" + b.Ver(),
		"pydoc3",
		"pydoc" + b.Ver(),
		"2to3-" + b.Ver(),
	}
	for i, name := range bins {
		bins[i] = filepath.Join(b.Prefix(), "bin", name)
	}
	return shell.RemoveAll(bins...)
}

// Ziplib compresses the installed stdlib into lib/pythonXY.zip and rebuilds
// the on-disk skeleton around it. With Precompile set the stdlib is compiled
// to bytecode first and the .py sources are dropped from the archive.
func (b *PythonBuilder) Ziplib(ctx context.Context) error {
	if b.Shell.DryRun {
		b.Logger.Info("dry run", "step", "ziplib")
		return nil
	}
	src := b.StdlibDir()
	buildDir := b.Project.Build

	// lib-dynload stays on disk, it cannot be imported from a zip.
	if err := shell.Move(filepath.Join(src, "lib-dynload"), filepath.Join(buildDir, "lib-dynload")); err != nil {
		return err
	}

	osModule := "os.py"
	if b.Precompile {
		if err := b.precompileLib(ctx, src); err != nil {
			return err
		}
		osModule = "os.pyc"
	}
	// getpath checks for os.{py,pyc} next to the zip to locate the prefix.
	if err := shell.Move(filepath.Join(src, osModule), filepath.Join(buildDir, osModule)); err != nil {
		return err
	}

	zipPath := filepath.Join(b.Prefix(), "lib", "python"+b.VerNoDot()+".zip")
	if err := shell.ZipDir(src, zipPath); err != nil {
		return err
	}
	b.Logger.Info("zipped stdlib", "path", zipPath)

	if err := shell.RemoveAll(src, filepath.Join(b.Prefix(), "lib", "pkgconfig")); err != nil {
		return err
	}
	if err := shell.MakeDirs(src, filepath.Join(src, "site-packages")); err != nil {
		return err
	}
	if err := shell.Move(filepath.Join(buildDir, "lib-dynload"), filepath.Join(src, "lib-dynload")); err != nil {
		return err
	}
	return shell.Move(filepath.Join(buildDir, osModule), filepath.Join(src, osModule))
}

// precompileLib compiles the stdlib to bytecode beside the sources and then
// removes the .py files. Only a same-version interpreter can produce
// compatible bytecode, so the freshly built executable does the compiling.
func (b *PythonBuilder) precompileLib(ctx context.Context, src string) error {
	if err := b.Shell.Cmd(ctx, filepath.Dir(src), b.Executable(),
		"-m", "compileall", "-f", "-b", "-o", strconv.Itoa(b.OptimizeBytecode), src); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".py") {
			return os.Remove(path)
		}
		return nil
	})
}

// InstallPkgs bootstraps pip and installs the requested packages into the
// built interpreter.
func (b *PythonBuilder) InstallPkgs(ctx context.Context) error {
	if err := b.Shell.Cmd(ctx, "", b.Executable(), "-m", "ensurepip"); err != nil {
		return err
	}
	return b.Shell.PipInstall(ctx, b.Executable(), b.Packages...)
}

// MakeRelocatable rewrites the install names and rpaths so that shared and
// framework builds can be moved or embedded without baked-in absolute paths.
func (b *PythonBuilder) MakeRelocatable(ctx context.Context) error {
	switch {
	case b.Host.IsDarwin() && b.BuildType == "shared":
		dylibName, err := b.DylibName()
		if err != nil {
			return err
		}
		dylib := filepath.Join(b.Prefix(), "lib", dylibName)
		if !b.Shell.DryRun {
			if err := os.Chmod(dylib, 0755); err != nil {
				return err
			}
		}
		if err := b.Shell.Cmd(ctx, "", "install_name_tool",
			"-id", "@loader_path/../Resources/lib/"+dylibName, dylib); err != nil {
			return err
		}
		exe := filepath.Join(b.Prefix(), "bin", b.NameVer())
		return b.Shell.InstallName(ctx, exe, dylib, "@executable_path/../lib/"+dylibName)

	case b.Host.IsDarwin() && b.BuildType == "framework":
		dylib := filepath.Join(b.Prefix(), b.Target.Name)
		if !b.Shell.DryRun {
			if err := os.Chmod(dylib, 0755); err != nil {
				return err
			}
		}
		cfg, err := b.ExtensionConfig()
		if err != nil {
			return err
		}
		id := cfg.InstallNameID
		if id == "" {
			id = fmt.Sprintf("@loader_path/../Python.framework/Versions/%s/Python", b.Ver())
		}
		if err := b.Shell.Cmd(ctx, "", "install_name_tool", "-id", id, dylib); err != nil {
			return err
		}
		exe := filepath.Join(b.Prefix(), "bin", b.NameVer())
		if err := b.Shell.InstallName(ctx, exe, dylib, "@executable_path/../Python"); err != nil {
			return err
		}
		app := filepath.Join(b.Prefix(), "Resources", "Python.app", "Contents", "MacOS", "Python")
		return b.Shell.InstallName(ctx, app, dylib, "@executable_path/../../../../Python")

	case b.Host.IsLinux() && b.BuildType == "shared":
		exe := filepath.Join(b.Prefix(), "bin", b.NameVer())
		return b.Shell.Cmd(ctx, "", "patchelf", "--set-rpath", "$ORIGIN/../lib", exe)
	}
	return nil
}

// ValidateBuild smoke-tests the built interpreter. Failure is reported but
// does not fail the pipeline.
func (b *PythonBuilder) ValidateBuild(ctx context.Context) bool {
	if b.Shell.DryRun {
		return true
	}
	if _, err := os.Stat(b.Executable()); err != nil {
		b.Logger.Error("python executable not found", "path", b.Executable())
		return false
	}
	out, err := b.Shell.Output(ctx, "", b.Executable(), "--version")
	if err != nil {
		b.Logger.Error("build validation failed", "error", err)
		return false
	}
	b.Logger.Info("python version", "output", strings.TrimSpace(string(out)))
	return true
}

// isBuildCached reports whether the main artifacts of a previous build of
// this variant are already on disk.
func (b *PythonBuilder) isBuildCached() bool {
	if b.BuildType == "static" {
		lib := filepath.Join(b.Prefix(), "lib", b.Host.StaticLibName(b.LibName()))
		if _, err := os.Stat(lib); err != nil {
			return false
		}
	} else {
		dylibName, err := b.DylibName()
		if err != nil {
			return false
		}
		dylib := filepath.Join(b.Prefix(), "lib", dylibName)
		if b.BuildType == "framework" {
			dylib = filepath.Join(b.Prefix(), b.Target.Name)
		}
		if _, err := os.Stat(dylib); err != nil {
			return false
		}
	}
	if _, err := os.Stat(b.Executable()); err != nil {
		return false
	}
	b.Logger.Info("found cached build",
		"version", b.Target.Version, "build_type", b.BuildType)
	return true
}

// CanRun reports whether a build run would do anything.
func (b *PythonBuilder) CanRun() bool {
	for _, dep := range b.Deps {
		if !dep.LibProductsExist() {
			b.Logger.Debug("dependency not built", "name", dep.Name())
			return true
		}
	}
	return !b.isBuildCached()
}

// Process runs the whole build pipeline and records the outcome when a
// build store is attached.
func (b *PythonBuilder) Process(ctx context.Context) error {
	if !b.Shell.DryRun && !b.CanRun() {
		b.Logger.Info("everything built, skipping run")
		return nil
	}

	started := time.Now()
	err := b.process(ctx)
	if b.Store != nil && !b.Shell.DryRun {
		b.recordBuild(started, err)
	}
	return err
}

func (b *PythonBuilder) process(ctx context.Context) error {
	for _, dep := range b.Deps {
		if err := dep.Process(ctx, b.Downloader); err != nil {
			return fmt.Errorf("build %s %s: %w", dep.Name(), dep.Version(), err)
		}
	}
	if err := b.Setup(ctx); err != nil {
		return err
	}
	if err := b.Configure(ctx); err != nil {
		return err
	}
	if err := b.Build(ctx); err != nil {
		return err
	}
	if err := b.Install(ctx); err != nil {
		return err
	}
	if err := b.Clean(); err != nil {
		return err
	}
	if b.SkipZiplib {
		b.Logger.Info("skipping ziplib")
	} else if err := b.Ziplib(ctx); err != nil {
		return err
	}
	if len(b.Packages) > 0 {
		if err := b.InstallPkgs(ctx); err != nil {
			return err
		}
	}
	if b.BuildType == "shared" || b.BuildType == "framework" {
		if err := b.MakeRelocatable(ctx); err != nil {
			return err
		}
	}
	if !b.ValidateBuild(ctx) {
		b.Logger.Warn("build validation failed, continuing")
	}
	b.Logger.Info("build complete", "variant", b.Variant, "prefix", b.Prefix())
	return nil
}

func (b *PythonBuilder) recordBuild(started time.Time, buildErr error) {
	major, minor, patch, err := storage.ParseSemver(b.Target.Version)
	if err != nil {
		b.Logger.Warn("skipping build record", "error", err)
		return
	}
	rec := &storage.Build{
		Version:      b.Target.Version,
		VersionMajor: major,
		VersionMinor: minor,
		VersionPatch: patch,
		Variant:      b.Variant,
		Platform:     b.Host.OS,
		Architecture: b.Host.Arch,
		Prefix:       b.Prefix(),
		SizeBytes:    dirSize(b.Prefix()),
		DurationSec:  int(time.Since(started).Seconds()),
		Optimized:    b.Optimize,
		Status:       "success",
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if buildErr != nil {
		rec.Status = "failed"
		rec.ErrorMsg = buildErr.Error()
	}
	if err := b.Store.RecordBuild(rec); err != nil {
		b.Logger.Warn("failed to record build", "error", err)
	}
}

// dirSize totals the file sizes under root. Errors yield zero, a build
// record without a size beats a failed build record.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
