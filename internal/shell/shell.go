// Package shell wraps external process execution and the filesystem
// operations build recipes need. All process execution goes through the
// Runner interface so recipes can be tested without a toolchain installed.
package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes external commands.
// This interface enables testing without actual command execution.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// RealRunner executes actual system commands.
type RealRunner struct{}

// NewRealRunner creates a runner that executes real commands.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes a command in dir and returns combined stdout/stderr output.
func (r *RealRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// MockRunner is a test double for Runner.
type MockRunner struct {
	Output []byte
	Err    error
	Calls  [][]string // Track calls for debugging
}

// Run returns the configured output and error.
func (m *MockRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	call := append([]string{dir, name}, args...)
	m.Calls = append(m.Calls, call)
	return m.Output, m.Err
}

// Shell runs commands on behalf of build recipes. With DryRun set, commands
// are recorded and logged instead of executed.
type Shell struct {
	runner Runner
	logger *slog.Logger

	DryRun bool
	plan   []string
}

// New creates a shell around the given runner. A nil runner gets a real one,
// a nil logger gets the default logger.
func New(runner Runner, logger *slog.Logger) *Shell {
	if runner == nil {
		runner = NewRealRunner()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{runner: runner, logger: logger}
}

// Plan returns the commands recorded during a dry run, in order.
func (s *Shell) Plan() []string {
	return s.plan
}

// Cmd runs a command in dir. Output is returned to the caller only through
// the error path; use Output when the caller needs it on success.
func (s *Shell) Cmd(ctx context.Context, dir, name string, args ...string) error {
	_, err := s.Output(ctx, dir, name, args...)
	return err
}

// Output runs a command in dir and returns its combined output.
func (s *Shell) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	display := name
	if len(args) > 0 {
		display += " " + strings.Join(args, " ")
	}
	if s.DryRun {
		s.plan = append(s.plan, display)
		s.logger.Info("dry run", "cmd", display, "dir", dir)
		return nil, nil
	}
	s.logger.Debug("exec", "cmd", display, "dir", dir)
	out, err := s.runner.Run(ctx, dir, name, args...)
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", display, err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// GitClone clones a repository branch into dest as a shallow checkout.
func (s *Shell) GitClone(ctx context.Context, repo, branch, dest string, recurse bool) error {
	args := []string{"clone", "--depth=1", "--branch", branch}
	if recurse {
		args = append(args, "--recurse-submodules", "--shallow-submodules")
	}
	args = append(args, repo, dest)
	return s.Cmd(ctx, "", "git", args...)
}

// CMakeConfigure generates a build system from srcDir into buildDir.
func (s *Shell) CMakeConfigure(ctx context.Context, srcDir, buildDir string, options ...string) error {
	args := append([]string{"-S", srcDir, "-B", buildDir}, options...)
	return s.Cmd(ctx, "", "cmake", args...)
}

// CMakeBuild compiles a configured build directory.
func (s *Shell) CMakeBuild(ctx context.Context, buildDir string, release bool) error {
	args := []string{"--build", buildDir}
	if release {
		args = append(args, "--config", "Release")
	}
	return s.Cmd(ctx, "", "cmake", args...)
}

// CMakeInstall installs a built tree under prefix.
func (s *Shell) CMakeInstall(ctx context.Context, buildDir, prefix string) error {
	return s.Cmd(ctx, "", "cmake", "--install", buildDir, "--prefix", prefix)
}

// PipInstall installs packages with the pip bundled in the given python.
func (s *Shell) PipInstall(ctx context.Context, python string, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append([]string{"-m", "pip", "install"}, pkgs...)
	return s.Cmd(ctx, "", python, args...)
}

// InstallName rewrites a Mach-O install name, used when making darwin
// builds relocatable.
func (s *Shell) InstallName(ctx context.Context, target, from, to string) error {
	return s.Cmd(ctx, "", "install_name_tool", "-change", from, to, target)
}

// MakeDirs creates every listed directory, parents included.
func MakeDirs(paths ...string) error {
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", p, err)
		}
	}
	return nil
}

// Move renames src to dst, creating dst's parent if needed.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// CopyTree copies a directory tree, preserving symlinks and file modes. An
// existing destination is replaced.
func CopyTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		default:
			in, err := os.Open(path)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, in); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		}
	})
}

// RemoveAll removes every listed path. Missing paths are not an error.
func RemoveAll(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// GlobRemove walks root and removes every file or directory whose base name
// matches one of the patterns. Matched directories are removed whole and not
// descended into.
func GlobRemove(root string, patterns ...string) error {
	var pruned []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		for _, p := range pruned {
			if strings.HasPrefix(path, p+string(os.PathSeparator)) {
				return nil
			}
		}
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, info.Name())
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				return err
			}
			if info.IsDir() {
				pruned = append(pruned, path)
				return filepath.SkipDir
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("glob remove under %s: %w", root, err)
	}
	return nil
}
