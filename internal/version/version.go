// Package version validates and compares python version strings.
package version

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Operation names used in ErrParseFailed.
const (
	OpValidate = "validate"
	OpSeries   = "series"
	OpCompare  = "compare"
	OpLatest   = "latest"
)

var (
	// ErrNoVersions is returned when a selection is requested from an
	// empty version list.
	ErrNoVersions = errors.New("no versions provided")
	// ErrNoMatch is returned when no version in a list belongs to the
	// requested release series.
	ErrNoMatch = errors.New("no version matches the release series")
)

// ErrParseFailed wraps a semver parse failure with the operation context.
type ErrParseFailed struct {
	Version string
	Op      string
	Cause   error
}

func (e ErrParseFailed) Error() string {
	return fmt.Sprintf("failed to parse version %s in operation %s: %v", e.Version, e.Op, e.Cause)
}

func (e ErrParseFailed) Unwrap() error {
	return e.Cause
}

func (e ErrParseFailed) Is(target error) bool {
	var parseErr ErrParseFailed
	return errors.As(target, &parseErr)
}

// Validate checks that a version string is a full release version, e.g.
// "3.13.11". Short series strings like "3.13" are accepted since the
// registry expands them.
func Validate(version string) error {
	if _, err := semver.NewVersion(version); err != nil {
		return ErrParseFailed{Version: version, Op: OpValidate, Cause: err}
	}
	return nil
}

// Series extracts the release series from a version, e.g. "3.13.11" -> "3.13".
func Series(version string) (string, error) {
	sv, err := semver.NewVersion(version)
	if err != nil {
		return "", ErrParseFailed{Version: version, Op: OpSeries, Cause: err}
	}
	return fmt.Sprintf("%d.%d", sv.Major(), sv.Minor()), nil
}

// InSeries reports whether version belongs to the given release series.
func InSeries(series, version string) (bool, error) {
	seriesVer, err := semver.NewVersion(series)
	if err != nil {
		return false, ErrParseFailed{Version: series, Op: OpSeries, Cause: err}
	}
	sv, err := semver.NewVersion(version)
	if err != nil {
		return false, ErrParseFailed{Version: version, Op: OpSeries, Cause: err}
	}
	return sv.Major() == seriesVer.Major() && sv.Minor() == seriesVer.Minor(), nil
}

// Compare compares two versions (-1 if v1 < v2, 0 if equal, 1 if v1 > v2).
func Compare(v1, v2 string) (int, error) {
	ver1, err := semver.NewVersion(v1)
	if err != nil {
		return 0, ErrParseFailed{Version: v1, Op: OpCompare, Cause: err}
	}
	ver2, err := semver.NewVersion(v2)
	if err != nil {
		return 0, ErrParseFailed{Version: v2, Op: OpCompare, Cause: err}
	}
	return ver1.Compare(ver2), nil
}

// Latest returns the highest version in the list that belongs to the given
// release series. Versions that fail to parse are skipped.
func Latest(series string, versions []string) (string, error) {
	if len(versions) == 0 {
		return "", ErrNoVersions
	}
	seriesVer, err := semver.NewVersion(series)
	if err != nil {
		return "", ErrParseFailed{Version: series, Op: OpLatest, Cause: err}
	}

	var best *semver.Version
	var bestStr string
	for _, candidate := range versions {
		sv, err := semver.NewVersion(candidate)
		if err != nil {
			continue
		}
		if sv.Major() != seriesVer.Major() || sv.Minor() != seriesVer.Minor() {
			continue
		}
		if best == nil || sv.GreaterThan(best) {
			best = sv
			bestStr = candidate
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, series)
	}
	return bestStr, nil
}
