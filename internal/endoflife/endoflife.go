// Package endoflife provides integration with the endoflife.date API
// for checking the lifecycle status of python release cycles before a build.
package endoflife

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default endoflife.date API base URL
	DefaultBaseURL = "https://endoflife.date/api/v1"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is the default User-Agent header
	DefaultUserAgent = "buildpy/1.0"

	// DefaultProduct is the product queried when none is configured
	DefaultProduct = "python"
)

// Custom error types for better error handling
var (
	// ErrProductNotFound indicates the requested product was not found
	ErrProductNotFound = fmt.Errorf("product not found")

	// ErrCycleNotFound indicates no release cycle matched the requested version
	ErrCycleNotFound = fmt.Errorf("release cycle not found")

	// ErrInvalidResponse indicates the API response was invalid
	ErrInvalidResponse = fmt.Errorf("invalid API response")

	// ErrNetworkError indicates a network-related error
	ErrNetworkError = fmt.Errorf("network error")
)

// ErrAPIError represents an API-specific error
type ErrAPIError struct {
	StatusCode int
	Message    string
	Product    string
}

func (e ErrAPIError) Error() string {
	if e.Product != "" {
		return fmt.Sprintf("API error for product %s: %d %s", e.Product, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %d %s", e.StatusCode, e.Message)
}

func (e ErrAPIError) Is(target error) bool {
	if target == ErrProductNotFound && e.StatusCode == 404 {
		return true
	}
	if target == ErrInvalidResponse && e.StatusCode >= 400 && e.StatusCode < 500 {
		return true
	}
	if target == ErrNetworkError && e.StatusCode >= 500 {
		return true
	}
	return false
}

// ProductInfo represents the product information from endoflife.date API
type ProductInfo struct {
	SchemaVersion string `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`
	LastModified  string `json:"last_modified"`
	Result        struct {
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
	} `json:"result"`
}

// Identifier represents a package identifier
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Labels represents the lifecycle labels
type Labels struct {
	EOAS         *string `json:"eoas"`
	Discontinued *string `json:"discontinued"`
	EOL          *string `json:"eol"`
	EOES         *string `json:"eoes"`
}

// Links represents related links
type Links struct {
	Icon          string `json:"icon,omitempty"`
	HTML          string `json:"html,omitempty"`
	ReleasePolicy string `json:"releasePolicy,omitempty"`
}

// Release represents a single release cycle from the API
type Release struct {
	Name         string  `json:"name"`
	Codename     *string `json:"codename"`
	Label        string  `json:"label"`
	ReleaseDate  string  `json:"releaseDate"`
	IsLTS        bool    `json:"isLts"`
	LTSFrom      *string `json:"ltsFrom"`
	IsEOAS       bool    `json:"isEoas"`
	EOASFrom     *string `json:"eoasFrom"`
	IsEOL        bool    `json:"isEol"`
	EOLFrom      *string `json:"eolFrom"`
	IsEOES       *bool   `json:"isEoes"`
	EOESFrom     *string `json:"eoesFrom"`
	IsMaintained bool    `json:"isMaintained"`
	Latest       struct {
		Name string `json:"name"`
		Date string `json:"date"`
		Link string `json:"link"`
	} `json:"latest"`
}

// CycleStatus summarizes the lifecycle state of one release cycle, as used
// by the build command to warn about or refuse unmaintained versions.
type CycleStatus struct {
	Cycle        string
	LatestPatch  string
	ReleaseDate  string
	EOLDate      string
	IsEOL        bool
	IsEOAS       bool
	IsMaintained bool
}

// IsSecurityOnly returns true if this cycle only receives security fixes.
func (s *CycleStatus) IsSecurityOnly() bool {
	return s.IsEOAS && !s.IsEOL && s.IsMaintained
}

// LifecycleLabel returns a human-readable lifecycle status string
func (s *CycleStatus) LifecycleLabel() string {
	if s.IsEOL {
		return "End of Life"
	}
	if s.IsSecurityOnly() {
		return "Security Support Only"
	}
	if s.IsMaintained {
		return "Active Support"
	}
	return "Unknown"
}

// Client defines the interface for endoflife.date API client
type Client interface {
	// GetProductInfo retrieves product information for a given product
	GetProductInfo(ctx context.Context, product string) (*ProductInfo, error)

	// GetCycleStatus returns the lifecycle status for the release cycle
	// that covers the given full version (e.g. "3.12.9" maps to cycle "3.12")
	GetCycleStatus(ctx context.Context, product string, version string) (*CycleStatus, error)

	// IsEOL reports whether the release cycle covering version has reached
	// its end of life
	IsEOL(ctx context.Context, product string, version string) (bool, error)
}

// HTTPClient defines the interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the endoflife client
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient HTTPClient
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// client implements the Client interface
type client struct {
	config Config
}

// NewClient creates a new endoflife.date API client
func NewClient(config Config) Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &client{config: config}
}

// GetProductInfo retrieves product information for a given product
func (c *client) GetProductInfo(ctx context.Context, product string) (*ProductInfo, error) {
	if product == "" {
		return nil, ErrAPIError{
			StatusCode: 400,
			Message:    "product name cannot be empty",
			Product:    product,
		}
	}

	apiURL, err := url.JoinPath(c.config.BaseURL, "products", product)
	if err != nil {
		return nil, fmt.Errorf("failed to construct API URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, ErrAPIError{
			StatusCode: 0,
			Message:    err.Error(),
			Product:    product,
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrAPIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			Product:    product,
		}
	}

	var productInfo ProductInfo
	if err := json.NewDecoder(resp.Body).Decode(&productInfo); err != nil {
		return nil, ErrAPIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
			Product:    product,
		}
	}

	return &productInfo, nil
}

// GetCycleStatus returns the lifecycle status for the release cycle that
// covers the given full version
func (c *client) GetCycleStatus(ctx context.Context, product string, version string) (*CycleStatus, error) {
	if product == "" {
		product = DefaultProduct
	}

	cycle, err := CycleForVersion(version)
	if err != nil {
		return nil, err
	}

	productInfo, err := c.GetProductInfo(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to get product info for %s: %w", product, err)
	}

	for _, release := range productInfo.Result.Releases {
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

// IsEOL reports whether the release cycle covering version has reached its
// end of life
func (c *client) IsEOL(ctx context.Context, product string, version string) (bool, error) {
	status, err := c.GetCycleStatus(ctx, product, version)
	if err != nil {
		return false, err
	}
	return status.IsEOL, nil
}

// CycleForVersion reduces a full version like "3.12.9" to its release cycle
// "3.12". A bare cycle passes through unchanged.
func CycleForVersion(version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("version cannot be empty")
	}

	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("version %q must contain at least major.minor", version)
	}
	return parts[0] + "." + parts[1], nil
}
