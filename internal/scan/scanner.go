// Package scan checks downloaded source archives for malware before they
// enter the build tree, using ClamAV in a Docker container.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildpy-dev/buildpy/internal/shell"
)

// DefaultImage is the ClamAV container image used when none is configured.
const DefaultImage = "clamav/clamav-debian:latest"

// Sentinel errors
var (
	ErrDockerUnavailable = errors.New("docker command not available")
	ErrThreatDetected    = errors.New("threat detected")
)

// Scanner scans files for malware.
type Scanner interface {
	Scan(ctx context.Context, path string) (Result, error)
}

// Result represents the outcome of a malware scan.
type Result struct {
	Clean    bool
	Threats  []string
	Metadata Metadata
}

// Metadata contains information about the scan environment.
type Metadata struct {
	EngineVersion string
	DatabaseDate  string
	ScanDuration  time.Duration
}

// DockerScanner implements Scanner using ClamAV in a Docker container.
type DockerScanner struct {
	runner shell.Runner
	image  string
	logger *slog.Logger

	// DeleteOnDetection removes the scanned file when a threat is found.
	DeleteOnDetection bool
}

// NewDockerScanner creates a scanner that uses ClamAV in Docker.
func NewDockerScanner(runner shell.Runner, image string, logger *slog.Logger) *DockerScanner {
	if runner == nil {
		runner = &shell.RealRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if image == "" {
		image = DefaultImage
	}
	return &DockerScanner{
		runner: runner,
		image:  image,
		logger: logger,
	}
}

// Scan scans a file for malware using ClamAV in a Docker container. When
// DeleteOnDetection is set, an infected file is removed from disk and the
// result still reports the threats found.
func (s *DockerScanner) Scan(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	if !s.isDockerAvailable() {
		return Result{}, ErrDockerUnavailable
	}

	if err := s.ensureImage(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to ensure image: %w", err)
	}

	version, err := s.getVersion(ctx)
	if err != nil {
		// Version is informational only
		s.logger.Warn("failed to get ClamAV version", "error", err)
		version = "unknown"
	}

	// Volume mounts need an absolute host path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat scan target: %w", err)
	}

	output, err := s.runClamscan(ctx, absPath, info.IsDir())

	exitCode := 0
	if err != nil {
		exitCode = extractExitCode(err)
		if exitCode < 0 {
			return Result{}, fmt.Errorf("failed to run clamscan: %w", err)
		}
	}

	result, err := parseResult(output, exitCode, version)
	if err != nil {
		return Result{}, err
	}

	result.Metadata.ScanDuration = time.Since(start)

	if !result.Clean {
		s.logger.Warn("threats detected",
			"file", absPath,
			"threats", strings.Join(result.Threats, ", "))
		if s.DeleteOnDetection && !info.IsDir() {
			if rmErr := os.Remove(absPath); rmErr != nil {
				return result, fmt.Errorf("failed to delete infected file: %w", rmErr)
			}
			s.logger.Info("deleted infected file", "file", absPath)
		}
	}

	return result, nil
}

// getVersion retrieves the ClamAV version from the container.
func (s *DockerScanner) getVersion(ctx context.Context) (string, error) {
	output, err := s.runner.Run(ctx, "", "docker", "run", "--rm", s.image, "clamscan", "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// isDockerAvailable checks if the docker command is available.
func (s *DockerScanner) isDockerAvailable() bool {
	_, err := s.runner.Run(context.Background(), "", "docker", "--version")
	return err == nil
}

// ensureImage ensures the ClamAV image is available locally.
func (s *DockerScanner) ensureImage(ctx context.Context) error {
	_, err := s.runner.Run(ctx, "", "docker", "image", "inspect", s.image)
	if err == nil {
		return nil
	}

	_, err = s.runner.Run(ctx, "", "docker", "pull", s.image)
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", s.image, err)
	}

	return nil
}

// runClamscan executes clamscan in a Docker container.
func (s *DockerScanner) runClamscan(ctx context.Context, path string, recursive bool) ([]byte, error) {
	args := buildDockerArgs(s.image, path, "/scan", recursive)
	return s.runner.Run(ctx, "", "docker", args...)
}

// buildDockerArgs constructs arguments for docker run command. Directory
// targets get a recursive scan.
func buildDockerArgs(image, hostPath, containerPath string, recursive bool) []string {
	args := []string{
		"run",
		"--rm",
		"-v", fmt.Sprintf("%s:%s:ro", hostPath, containerPath),
		image,
		"clamscan",
		"--stdout",
	}
	if recursive {
		args = append(args, "-r")
	}
	return append(args, containerPath)
}

// extractExitCode attempts to extract an exit code from an error.
// Returns -1 if the error is not an exit error.
func extractExitCode(err error) int {
	// Real commands return *exec.ExitError
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}

	// Mocks may return anything with an ExitCode() method
	type exitCoder interface {
		ExitCode() int
	}
	if exitErr, ok := err.(exitCoder); ok {
		return exitErr.ExitCode()
	}

	return -1
}
