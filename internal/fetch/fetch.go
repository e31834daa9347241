// Package fetch downloads source archives concurrently and verifies them by
// checksum and detached GPG signature.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Task describes one file to download.
type Task struct {
	Component  string // openssl, bzip2, xz, python
	Version    string
	URL        string
	OutputPath string
	Optional   bool // a 404 on an optional file is not a failure
	Headers    map[string]string
}

// Result holds the outcome of one download task.
type Result struct {
	Task      *Task
	LocalPath string
	Size      int64
	Duration  time.Duration
	Success   bool
	Error     error
}

// Downloader handles concurrent download operations.
type Downloader struct {
	concurrency int
	timeout     time.Duration
	httpClient  *http.Client
	stdout      *slog.Logger
	stderr      *slog.Logger
}

// NewDownloader creates a new concurrent downloader with loggers.
func NewDownloader(concurrency int, timeout time.Duration, stdout, stderr *slog.Logger) *Downloader {
	if stdout == nil {
		stdout = slog.Default()
	}
	if stderr == nil {
		stderr = slog.Default()
	}
	return &Downloader{
		concurrency: concurrency,
		timeout:     timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stdout: stdout,
		stderr: stderr,
	}
}

// Process executes multiple download tasks concurrently.
func (d *Downloader) Process(ctx context.Context, tasks []Task) ([]Result, error) {
	if len(tasks) == 0 {
		d.stdout.Debug("no download tasks to process")
		return []Result{}, nil
	}

	d.stdout.Info("starting concurrent downloads",
		"task_count", len(tasks),
		"concurrency", d.concurrency,
		"timeout", d.timeout)

	// Channel to control concurrency
	semaphore := make(chan struct{}, d.concurrency)
	results := make([]Result, len(tasks))
	var wg sync.WaitGroup
	var mu sync.Mutex // Mutex to protect results slice

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t Task) {
			defer wg.Done()

			// Acquire semaphore with context support
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				mu.Lock()
				results[index] = Result{Task: &t, Error: ctx.Err()}
				mu.Unlock()
				return
			}

			result := d.downloadFile(ctx, t)

			mu.Lock()
			results[index] = result
			mu.Unlock()
		}(i, task)
	}

	wg.Wait()

	successCount := 0
	failureCount := 0
	totalSize := int64(0)
	for _, result := range results {
		if result.Error != nil {
			failureCount++
		} else {
			successCount++
			totalSize += result.Size
		}
	}

	d.stdout.Info("concurrent downloads completed",
		"total_tasks", len(tasks),
		"successful", successCount,
		"failed", failureCount,
		"total_size_bytes", totalSize)

	return results, nil
}

// downloadFile downloads a single file. The body is written to a .tmp file
// that is renamed into place only on success, so a cancelled download never
// leaves a truncated archive behind.
func (d *Downloader) downloadFile(ctx context.Context, task Task) Result {
	start := time.Now()
	result := Result{
		Task:      &task,
		LocalPath: task.OutputPath,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		d.stderr.Error("download failed",
			"url", task.URL,
			"error", err,
			"duration_ms", result.Duration.Milliseconds())
		return result
	}

	d.stdout.Debug("starting file download",
		"url", task.URL,
		"output_path", task.OutputPath,
		"component", task.Component,
		"version", task.Version,
		"optional", task.Optional)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", fmt.Sprintf("buildpy/1.0 (%s)", task.Component))
	for k, v := range task.Headers {
		req.Header.Set(k, v)
	}

	if err := os.MkdirAll(filepath.Dir(task.OutputPath), 0755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	tmpPath := task.OutputPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fail(fmt.Errorf("failed to create output file: %w", err))
	}
	defer func() {
		_ = out.Close()        // Ignore close error to not override return error
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to send HTTP request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		if task.Optional && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden) {
			// For optional files, treat 404/403 as success without a file
			result.Success = true
			result.Duration = time.Since(start)
			d.stdout.Debug("optional file not available",
				"url", task.URL,
				"status_code", resp.StatusCode,
				"duration_ms", result.Duration.Milliseconds())
			return result
		}
		return fail(fmt.Errorf("download returned status %d: %s", resp.StatusCode, resp.Status))
	}

	size, err := io.Copy(out, resp.Body)
	if err != nil {
		return fail(fmt.Errorf("failed to write file: %w", err))
	}
	if err := out.Close(); err != nil {
		return fail(fmt.Errorf("failed to flush file: %w", err))
	}
	if err := os.Rename(tmpPath, task.OutputPath); err != nil {
		return fail(fmt.Errorf("failed to move file into place: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	result.Size = size

	d.stdout.Debug("file download completed",
		"url", task.URL,
		"output_path", task.OutputPath,
		"size_bytes", size,
		"duration_ms", result.Duration.Milliseconds())

	return result
}
