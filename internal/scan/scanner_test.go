package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const versionOutput = "ClamAV 1.5.1/27805/Mon Oct 27 09:50:30 2025"

// scriptRunner dispatches on the docker subcommand so each step of a scan
// can be scripted independently.
type scriptRunner struct {
	versionErr  error
	inspectErr  error
	pullErr     error
	scanOutput  []byte
	scanErr     error
	calls       [][]string
	pullsCalled int
}

// exitError carries an exit code like exec.ExitError does in real runs.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

func (r *scriptRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{dir, name}, args...))

	switch {
	case len(args) == 1 && args[0] == "--version":
		return []byte("Docker version 27.0.0"), r.versionErr
	case len(args) >= 2 && args[0] == "image" && args[1] == "inspect":
		return nil, r.inspectErr
	case args[0] == "pull":
		r.pullsCalled++
		return nil, r.pullErr
	case contains(args, "--version") && contains(args, "clamscan"):
		return []byte(versionOutput), nil
	default:
		return r.scanOutput, r.scanErr
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tempArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.tar.xz")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanCleanFile(t *testing.T) {
	runner := &scriptRunner{
		scanOutput: []byte("/scan: OK\n\n----------- SCAN SUMMARY -----------\nInfected files: 0\n"),
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())

	result, err := scanner.Scan(context.Background(), tempArchive(t))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if !result.Clean {
		t.Error("Scan() Clean = false, want true")
	}
	if len(result.Threats) != 0 {
		t.Errorf("Scan() Threats = %v, want none", result.Threats)
	}
	if result.Metadata.EngineVersion != versionOutput {
		t.Errorf("EngineVersion = %q", result.Metadata.EngineVersion)
	}
	if result.Metadata.DatabaseDate != "Mon Oct 27 09:50:30 2025" {
		t.Errorf("DatabaseDate = %q", result.Metadata.DatabaseDate)
	}
}

func TestScanInfectedFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "archive.tar.xz")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	runner := &scriptRunner{
		scanOutput: []byte("/scan: Eicar-Signature FOUND\n"),
		scanErr:    &exitError{code: 1},
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())

	result, err := scanner.Scan(context.Background(), path)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if result.Clean {
		t.Error("Scan() Clean = true, want false")
	}
	if len(result.Threats) != 1 || result.Threats[0] != "Eicar-Signature" {
		t.Errorf("Scan() Threats = %v, want [Eicar-Signature]", result.Threats)
	}

	// Without DeleteOnDetection the file stays
	if _, err := os.Stat(path); err != nil {
		t.Errorf("infected file should remain on disk: %v", err)
	}
}

func TestScanDeleteOnDetection(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "archive.tar.xz")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	runner := &scriptRunner{
		scanOutput: []byte("/scan: Eicar-Signature FOUND\n"),
		scanErr:    &exitError{code: 1},
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())
	scanner.DeleteOnDetection = true

	result, err := scanner.Scan(context.Background(), path)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if result.Clean {
		t.Error("Scan() Clean = true, want false")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("infected file should have been deleted")
	}
}

func TestScanDockerUnavailable(t *testing.T) {
	runner := &scriptRunner{versionErr: errors.New("command not found")}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())

	_, err := scanner.Scan(context.Background(), "archive.tar.xz")
	if !errors.Is(err, ErrDockerUnavailable) {
		t.Errorf("Scan() error = %v, want ErrDockerUnavailable", err)
	}
}

func TestScanPullsMissingImage(t *testing.T) {
	runner := &scriptRunner{
		inspectErr: errors.New("no such image"),
		scanOutput: []byte("/scan: OK\n"),
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())

	if _, err := scanner.Scan(context.Background(), tempArchive(t)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if runner.pullsCalled != 1 {
		t.Errorf("pull called %d times, want 1", runner.pullsCalled)
	}
}

func TestScanPullFails(t *testing.T) {
	runner := &scriptRunner{
		inspectErr: errors.New("no such image"),
		pullErr:    errors.New("network unreachable"),
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())

	_, err := scanner.Scan(context.Background(), "archive.tar.xz")
	if err == nil || !strings.Contains(err.Error(), "failed to ensure image") {
		t.Errorf("Scan() error = %v, want ensure image failure", err)
	}
}

func TestScanNonExitError(t *testing.T) {
	runner := &scriptRunner{
		scanErr: errors.New("context cancelled"),
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())

	_, err := scanner.Scan(context.Background(), tempArchive(t))
	if err == nil || !strings.Contains(err.Error(), "failed to run clamscan") {
		t.Errorf("Scan() error = %v, want clamscan failure", err)
	}
}

func TestBuildDockerArgs(t *testing.T) {
	args := buildDockerArgs("clamav/clamav:stable", "/downloads/file.tar.xz", "/scan", false)

	if contains(args, "-r") {
		t.Errorf("file scan should not be recursive: %v", args)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "/downloads/file.tar.xz:/scan:ro") {
		t.Errorf("args missing read-only volume mount: %v", args)
	}
	if args[0] != "run" || !contains(args, "--rm") || !contains(args, "--stdout") {
		t.Errorf("unexpected docker args: %v", args)
	}
}

func TestExtractExitCode(t *testing.T) {
	if got := extractExitCode(&exitError{code: 1}); got != 1 {
		t.Errorf("extractExitCode() = %d, want 1", got)
	}
	if got := extractExitCode(errors.New("plain error")); got != -1 {
		t.Errorf("extractExitCode() = %d, want -1", got)
	}
}

func TestScanDirectoryIsRecursive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.tar.xz"), []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	args := buildDockerArgs("clamav/clamav:stable", dir, "/scan", true)
	if !contains(args, "-r") {
		t.Errorf("directory scan should pass -r: %v", args)
	}
	if args[len(args)-1] != "/scan" {
		t.Errorf("scan target must come last: %v", args)
	}

	runner := &scriptRunner{
		scanOutput: []byte("/scan/a.tar.xz: OK\n\n----------- SCAN SUMMARY -----------\nInfected files: 0\n"),
	}
	scanner := NewDockerScanner(runner, "clamav/clamav:stable", quietLogger())
	result, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !result.Clean {
		t.Error("Scan() Clean = false, want true")
	}
}
