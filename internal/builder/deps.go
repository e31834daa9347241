package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/buildpy-dev/buildpy/internal/config"
	"github.com/buildpy-dev/buildpy/internal/fetch"
	"github.com/buildpy-dev/buildpy/internal/project"
	"github.com/buildpy-dev/buildpy/internal/shell"
)

// DepBuilder is a build recipe for one of python's bundled dependencies.
type DepBuilder interface {
	Name() string
	Version() string
	LibProductsExist() bool
	Process(ctx context.Context, dl *fetch.Downloader) error
}

// OpensslBuilder builds a static openssl for the _ssl and _hashlib modules.
type OpensslBuilder struct {
	Target
}

// NewOpensslBuilder creates the openssl recipe from its dependency config.
func NewOpensslBuilder(dep config.Dependency, proj *project.Project, sh *shell.Shell, logger *slog.Logger) *OpensslBuilder {
	b := &OpensslBuilder{Target: NewTarget("openssl", dep, proj, sh, logger)}
	b.LibProducts = []string{"libssl.a", "libcrypto.a"}
	return b
}

func (b *OpensslBuilder) Name() string    { return b.Target.Name }
func (b *OpensslBuilder) Version() string { return b.Target.Version }

// Process downloads, configures, and builds openssl unless its libraries
// already exist.
func (b *OpensslBuilder) Process(ctx context.Context, dl *fetch.Downloader) error {
	if b.LibProductsExist() {
		b.Logger.Info("openssl libraries present, skipping build")
		return nil
	}

	if err := b.FetchSource(ctx, dl); err != nil {
		return err
	}

	b.Logger.Info("configuring openssl", "version", b.Target.Version)
	if err := b.Shell.Cmd(ctx, b.SrcDir(), "./config",
		"no-shared", "no-tests", "--prefix="+b.Prefix()); err != nil {
		return err
	}

	b.Logger.Info("building openssl")
	if err := b.Shell.Cmd(ctx, b.SrcDir(), "make", "install_sw"); err != nil {
		return err
	}

	b.Logger.Info("openssl build complete")
	return nil
}

// Bzip2Builder builds a static libbz2 for the _bz2 module.
type Bzip2Builder struct {
	Target
}

// NewBzip2Builder creates the bzip2 recipe from its dependency config.
func NewBzip2Builder(dep config.Dependency, proj *project.Project, sh *shell.Shell, logger *slog.Logger) *Bzip2Builder {
	b := &Bzip2Builder{Target: NewTarget("bzip2", dep, proj, sh, logger)}
	b.LibProducts = []string{"libbz2.a"}
	return b
}

func (b *Bzip2Builder) Name() string    { return b.Target.Name }
func (b *Bzip2Builder) Version() string { return b.Target.Version }

// Process downloads and builds bzip2 unless its library already exists.
func (b *Bzip2Builder) Process(ctx context.Context, dl *fetch.Downloader) error {
	if b.LibProductsExist() {
		b.Logger.Info("bzip2 library present, skipping build")
		return nil
	}

	if err := b.FetchSource(ctx, dl); err != nil {
		return err
	}

	b.Logger.Info("building bzip2", "version", b.Target.Version)
	return b.Shell.Cmd(ctx, b.SrcDir(), "make", "install",
		"PREFIX="+b.Prefix(), "CFLAGS=-fPIC")
}

// XzBuilder builds a static liblzma for the _lzma module.
type XzBuilder struct {
	Target
}

// NewXzBuilder creates the xz recipe from its dependency config.
func NewXzBuilder(dep config.Dependency, proj *project.Project, sh *shell.Shell, logger *slog.Logger) *XzBuilder {
	b := &XzBuilder{Target: NewTarget("xz", dep, proj, sh, logger)}
	b.LibProducts = []string{"liblzma.a"}
	return b
}

func (b *XzBuilder) Name() string    { return b.Target.Name }
func (b *XzBuilder) Version() string { return b.Target.Version }

// Process downloads and builds xz unless its library already exists.
func (b *XzBuilder) Process(ctx context.Context, dl *fetch.Downloader) error {
	if b.LibProductsExist() {
		b.Logger.Info("xz library present, skipping build")
		return nil
	}

	if err := b.FetchSource(ctx, dl); err != nil {
		return err
	}

	// Release tarballs occasionally ship these without the exec bit
	for _, script := range []string{
		filepath.Join(b.SrcDir(), "configure"),
		filepath.Join(b.SrcDir(), "build-aux", "install-sh"),
	} {
		if err := os.Chmod(script, 0755); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", script, err)
		}
	}

	b.Logger.Info("configuring xz", "version", b.Target.Version)
	if err := b.Shell.Cmd(ctx, b.SrcDir(), "/bin/sh", "configure",
		"--disable-dependency-tracking",
		"--disable-xzdec",
		"--disable-lzmadec",
		"--disable-nls",
		"--enable-small",
		"--disable-shared",
		"--prefix="+b.Prefix()); err != nil {
		return err
	}

	b.Logger.Info("building xz")
	if err := b.Shell.Cmd(ctx, b.SrcDir(), "make"); err != nil {
		return err
	}
	return b.Shell.Cmd(ctx, b.SrcDir(), "make", "install")
}
