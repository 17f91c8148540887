// Package version describes the SDK build and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Build information, set with -ldflags at release time.
//
//nolint:gochecknoglobals // ldflags targets
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Platform is the platform name reported to the link frame.
const Platform = "go"

// Release lookup defaults.
const (
	DefaultBaseURL      = "https://api.github.com"
	DefaultTimeout      = 30 * time.Second
	DefaultOwner        = "mrz1836"
	DefaultRepo         = "linkbridge"
	maxErrorBodySize    = 1024
	maxResponseBodySize = 64 * 1024
)

// Errors returned by this package
var (
	ErrReleaseLookupFailed = errors.New("release lookup failed")
	ErrInvalidRepository   = errors.New("invalid owner/repo")
)

var repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Specs is the SDK descriptor pushed to the frame once it loads.
type Specs struct {
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

// SDKSpecs returns the descriptor of this build.
func SDKSpecs() Specs {
	return Specs{Platform: Platform, Version: NormalizeVersion(Version)}
}

// Release is the subset of a GitHub release the checker reads.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Info compares the running build with the latest release.
type Info struct {
	Current string
	Latest  string
	IsNewer bool
}

// Client looks up releases on GitHub.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  fmt.Sprintf("linkbridge/%s (%s/%s)", NormalizeVersion(Version), runtime.GOOS, runtime.GOARCH),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the latest published release of owner/repo.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	if !repoNamePattern.MatchString(owner) || !repoNamePattern.MatchString(repo) {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidRepository, owner, repo)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL built from a validated owner/repo
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("%w: status %d: %s", ErrReleaseLookupFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	return &release, nil
}

// Check compares the running build with the latest release of the SDK.
func (c *Client) Check(ctx context.Context) (*Info, error) {
	release, err := c.LatestRelease(ctx, DefaultOwner, DefaultRepo)
	if err != nil {
		return nil, err
	}
	return &Info{
		Current: NormalizeVersion(Version),
		Latest:  NormalizeVersion(release.TagName),
		IsNewer: IsNewerVersion(Version, release.TagName),
	}, nil
}

// CompareVersions returns 1, 0 or -1 as v1 is newer than, equal to or older
// than v2. Development builds sort before every release.
func CompareVersions(v1, v2 string) int {
	dev1, dev2 := isDevBuild(v1), isDevBuild(v2)
	switch {
	case dev1 && dev2:
		return 0
	case dev1:
		return -1
	case dev2:
		return 1
	}

	p1, p2 := parseVersion(v1), parseVersion(v2)
	for i := range 3 {
		if p1[i] != p2[i] {
			if p1[i] > p2[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// IsNewerVersion reports whether latest is newer than current.
func IsNewerVersion(current, latest string) bool {
	return CompareVersions(latest, current) > 0
}

// NormalizeVersion strips a leading "v", surrounding space and any
// pre-release or build suffix.
func NormalizeVersion(v string) string {
	v = strings.TrimLeft(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	return v
}

func parseVersion(v string) [3]int {
	var out [3]int
	for i, part := range strings.SplitN(NormalizeVersion(v), ".", 3) {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}

// isDevBuild matches "dev", empty versions and bare commit hashes.
func isDevBuild(v string) bool {
	v = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v), "v"), "-dirty")
	if v == "" || v == "dev" {
		return true
	}
	if len(v) < 7 || len(v) > 40 {
		return false
	}
	hasLetter := false
	for _, c := range strings.ToLower(v) {
		switch {
		case c >= 'a' && c <= 'f':
			hasLetter = true
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return hasLetter
}
