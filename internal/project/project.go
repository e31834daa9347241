// Package project holds the on-disk workspace layout shared by all build
// recipes: where sources are checked out, where downloads land, and where
// finished installs go.
package project

import (
	"os"
	"path/filepath"

	"github.com/buildpy-dev/buildpy/internal/shell"
)

// Project is the directory structure of a build workspace rooted at Root.
type Project struct {
	Root      string
	Build     string
	Support   string
	Downloads string
	Src       string
	Install   string
	Bin       string
	Lib       string
	LibStatic string
}

// New lays out a workspace under root. An empty root means the current
// working directory.
func New(root string) (*Project, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = cwd
	}
	build := filepath.Join(root, "build")
	return &Project{
		Root:      root,
		Build:     build,
		Support:   filepath.Join(root, "support"),
		Downloads: filepath.Join(build, "downloads"),
		Src:       filepath.Join(build, "src"),
		Install:   filepath.Join(build, "install"),
		Bin:       filepath.Join(build, "bin"),
		Lib:       filepath.Join(build, "lib"),
		LibStatic: filepath.Join(build, "lib", "static"),
	}, nil
}

// Setup creates the main workspace directories.
func (p *Project) Setup() error {
	return shell.MakeDirs(p.Build, p.Downloads, p.Install, p.Src)
}

// Reset prepares the workspace for a rebuild by dropping checkouts and the
// previous python install. Downloads are kept so rebuilds stay cheap.
func (p *Project) Reset() error {
	return shell.RemoveAll(p.Src, filepath.Join(p.Install, "python"))
}

// InstallPrefix returns the install location for a named dependency.
func (p *Project) InstallPrefix(name string) string {
	return filepath.Join(p.Install, name)
}

// SrcDir returns the checkout location for a named dependency.
func (p *Project) SrcDir(name string) string {
	return filepath.Join(p.Src, name)
}
