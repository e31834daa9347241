package endoflife

import (
	"context"
	"fmt"
	"time"
)

// MockClient implements Client interface for testing
type MockClient struct{}

// NewMockClient creates a new mock client
func NewMockClient() Client {
	return &MockClient{}
}

func (m *MockClient) GetProductInfo(ctx context.Context, product string) (*ProductInfo, error) {
	return &ProductInfo{
		SchemaVersion: "1.0",
		GeneratedAt:   time.Now().Format(time.RFC3339),
		LastModified:  time.Now().Format(time.RFC3339),
		Result: struct {
			Name           string       `json:"name"`
			Aliases        []string     `json:"aliases"`
			Label          string       `json:"label"`
			Category       string       `json:"category"`
			Tags           []string     `json:"tags"`
			VersionCommand string       `json:"versionCommand,omitempty"`
			Identifiers    []Identifier `json:"identifiers,omitempty"`
			Labels         Labels       `json:"labels,omitempty"`
			Links          Links        `json:"links,omitempty"`
			Releases       []Release    `json:"releases"`
		}{
			Name:     product,
			Label:    fmt.Sprintf("Mock %s", product),
			Category: "lang",
			Releases: generateMockReleases(),
		},
	}, nil
}

func (m *MockClient) GetCycleStatus(ctx context.Context, product string, version string) (*CycleStatus, error) {
	cycle, err := CycleForVersion(version)
	if err != nil {
		return nil, err
	}

	for _, release := range generateMockReleases() {
		if release.Name != cycle {
			continue
		}
		status := &CycleStatus{
			Cycle:        release.Name,
			LatestPatch:  release.Latest.Name,
			ReleaseDate:  release.ReleaseDate,
			IsEOL:        release.IsEOL,
			IsEOAS:       release.IsEOAS,
			IsMaintained: release.IsMaintained,
		}
		if release.EOLFrom != nil {
			status.EOLDate = *release.EOLFrom
		}
		return status, nil
	}
	return nil, fmt.Errorf("%w: %s %s", ErrCycleNotFound, product, cycle)
}

func (m *MockClient) IsEOL(ctx context.Context, product string, version string) (bool, error) {
	status, err := m.GetCycleStatus(ctx, product, version)
	if err != nil {
		return false, err
	}
	return status.IsEOL, nil
}

func generateMockReleases() []Release {
	eol311 := "2027-10-31"
	return []Release{
		{
			Name:         "3.13",
			Label:        "3.13",
			ReleaseDate:  "2024-10-07",
			IsLTS:        false,
			IsEOL:        false,
			IsEOAS:       false,
			IsMaintained: true,
			Latest: struct {
				Name string `json:"name"`
				Date string `json:"date"`
				Link string `json:"link"`
			}{
				Name: "3.13.11",
				Date: "2025-12-04",
			},
		},
		{
			Name:         "3.12",
			Label:        "3.12",
			ReleaseDate:  "2023-10-02",
			IsLTS:        false,
			IsEOL:        false,
			IsEOAS:       true,
			IsMaintained: true,
			Latest: struct {
				Name string `json:"name"`
				Date string `json:"date"`
				Link string `json:"link"`
			}{
				Name: "3.12.12",
				Date: "2025-10-09",
			},
		},
		{
			Name:         "3.11",
			Label:        "3.11",
			ReleaseDate:  "2022-10-24",
			IsLTS:        false,
			IsEOL:        false,
			IsEOAS:       true,
			EOLFrom:      &eol311,
			IsMaintained: true,
			Latest: struct {
				Name string `json:"name"`
				Date string `json:"date"`
				Link string `json:"link"`
			}{
				Name: "3.11.14",
				Date: "2025-10-09",
			},
		},
		{
			Name:         "3.7",
			Label:        "3.7",
			ReleaseDate:  "2018-06-26",
			IsLTS:        false,
			IsEOL:        true,
			IsEOAS:       true,
			IsMaintained: false,
			Latest: struct {
				Name string `json:"name"`
				Date string `json:"date"`
				Link string `json:"link"`
			}{
				Name: "3.7.17",
				Date: "2023-06-05",
			},
		},
	}
}
