package fetch

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for verification.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrChecksumNotFound     = errors.New("checksum for file not found")
)

// Verifier checks a completed download.
type Verifier interface {
	Verify(ctx context.Context, result Result) error
	Type() string
}

// ComputeChecksum hashes a file with the named algorithm (sha256, sha512, md5)
// and returns the lowercase hex digest.
func ComputeChecksum(path, algorithm string) (string, error) {
	var h hash.Hash
	switch strings.ToLower(algorithm) {
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	case "md5":
		h = md5.New()
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFileChecksum hashes path and compares against the expected digest.
func VerifyFileChecksum(path, algorithm, expected string) error {
	actual, err := ComputeChecksum(path, algorithm)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrChecksumMismatch, path, expected, actual)
	}
	return nil
}

// ParseChecksumFile extracts the digest for filename from checksum file
// contents. It accepts the common "<digest>  <filename>" multi-line format
// as well as a bare single digest.
func ParseChecksumFile(data []byte, filename string) (string, error) {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 1 && len(strings.Fields(lines[0])) == 1 {
		return strings.TrimSpace(lines[0]), nil
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// BSD tar output and some generators prefix names with "*" or "./".
		name := strings.TrimPrefix(strings.TrimPrefix(fields[len(fields)-1], "*"), "./")
		if name == filename || filepath.Base(name) == filename {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrChecksumNotFound, filename)
}

// ChecksumVerifier verifies a download against a known digest or a checksum
// file downloaded alongside it.
type ChecksumVerifier struct {
	Algorithm    string
	Expected     string // explicit digest, takes precedence
	ChecksumPath string // path to a downloaded checksum file
}

// Type returns the verification type name.
func (v *ChecksumVerifier) Type() string { return "checksum" }

// Verify checks the downloaded file's digest.
func (v *ChecksumVerifier) Verify(_ context.Context, result Result) error {
	expected := v.Expected
	if expected == "" {
		data, err := os.ReadFile(v.ChecksumPath)
		if err != nil {
			return fmt.Errorf("read checksum file: %w", err)
		}
		expected, err = ParseChecksumFile(data, filepath.Base(result.LocalPath))
		if err != nil {
			return err
		}
	}
	return VerifyFileChecksum(result.LocalPath, v.Algorithm, expected)
}

// SignatureVerifier verifies a download against a detached signature using
// the supplied verify function, typically gpg.VerifyDetachedFile.
type SignatureVerifier struct {
	SignaturePath string
	VerifyFunc    func(artifactPath, signaturePath string) error
}

// Type returns the verification type name.
func (v *SignatureVerifier) Type() string { return "gpg" }

// Verify checks the downloaded file's detached signature.
func (v *SignatureVerifier) Verify(_ context.Context, result Result) error {
	if v.VerifyFunc == nil {
		return errors.New("signature verifier has no verify function")
	}
	if err := v.VerifyFunc(result.LocalPath, v.SignaturePath); err != nil {
		return fmt.Errorf("signature verification failed for %s: %w", result.LocalPath, err)
	}
	return nil
}
