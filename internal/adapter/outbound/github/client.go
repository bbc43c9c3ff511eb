// Package github reads files out of GitHub repositories through the contents
// API. Sources are written github://owner/repo/path/to/file[@ref].
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	scheme         = "github://"
	defaultAPIBase = "https://api.github.com"
)

// Location is a parsed github:// source.
type Location struct {
	Owner string
	Repo  string
	Path  string
	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string
}

// IsGitHubURL checks if a source is a github:// URL.
func IsGitHubURL(source string) bool {
	return strings.HasPrefix(source, scheme)
}

// ParseURL parses a github:// URL into its components.
func ParseURL(source string) (Location, error) {
	if !IsGitHubURL(source) {
		return Location{}, fmt.Errorf("invalid GitHub URL format: %s", source)
	}
	rest := strings.TrimPrefix(source, scheme)

	var ref string
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest, ref = rest[:i], rest[i+1:]
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Location{}, fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file")
	}
	return Location{Owner: parts[0], Repo: parts[1], Path: parts[2], Ref: ref}, nil
}

// Client fetches raw file contents.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIBase points the client at a GitHub Enterprise or test server.
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithToken authenticates requests. Public repositories need no token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a Client. A nil httpClient means http.DefaultClient.
func NewClient(httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		apiBase:    defaultAPIBase,
		logger:     logger.With("component", "github_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFile retrieves the raw content of the file a github:// URL names.
func (c *Client) FetchFile(ctx context.Context, source string) ([]byte, error) {
	loc, err := ParseURL(source)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.apiBase,
		url.PathEscape(loc.Owner), url.PathEscape(loc.Repo), escapePath(loc.Path))
	if loc.Ref != "" {
		endpoint += "?ref=" + url.QueryEscape(loc.Ref)
	}
	log := c.logger.With(slog.String("source", source))
	log.Debug("Fetching file from GitHub", slog.String("endpoint", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", source, err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", source, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("file not found on GitHub: %s", source)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("GitHub denied access to %s (status %d); set a token", source, resp.StatusCode)
	default:
		return nil, fmt.Errorf("failed to fetch %s: status %s", source, resp.Status)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from GitHub")
	}
	return body, nil
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
