package github

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		want        Location
		expectError bool
	}{
		{
			name: "simple github URL",
			url:  "github://owner/repo/path/to/file.yaml",
			want: Location{Owner: "owner", Repo: "repo", Path: "path/to/file.yaml"},
		},
		{
			name: "github URL with ref",
			url:  "github://owner/repo/path/to/file.yaml@v1.0",
			want: Location{Owner: "owner", Repo: "repo", Path: "path/to/file.yaml", Ref: "v1.0"},
		},
		{
			name: "github URL with branch ref",
			url:  "github://microsoft/api-guidelines/graph/openapi.yaml@main",
			want: Location{Owner: "microsoft", Repo: "api-guidelines", Path: "graph/openapi.yaml", Ref: "main"},
		},
		{
			name:        "invalid URL - not github",
			url:         "https://github.com/owner/repo/file.yaml",
			expectError: true,
		},
		{
			name:        "invalid URL - missing path",
			url:         "github://owner/repo",
			expectError: true,
		},
		{
			name:        "invalid URL - missing repo",
			url:         "github://owner",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsGitHubURL(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"github://owner/repo/file.yaml", true},
		{"github://owner/repo/file.yaml@v1.0", true},
		{"https://github.com/owner/repo/file.yaml", false},
		{"http://example.com/api.yaml", false},
		{"file:///local/path/api.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsGitHubURL(tt.url))
		})
	}
}

func TestClient_FetchFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/apis/contents/specs/users.yaml":
			assert.Equal(t, "application/vnd.github.raw", r.Header.Get("Accept"))
			assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
			assert.Equal(t, "v2", r.URL.Query().Get("ref"))
			w.Write([]byte("openapi: 3.0.3\n"))
		case "/repos/acme/apis/contents/private.yaml":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient(server.Client(), logger, WithAPIBase(server.URL+"/"), WithToken("t0k"))
	ctx := context.Background()

	content, err := client.FetchFile(ctx, "github://acme/apis/specs/users.yaml@v2")
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.3\n", string(content))

	_, err = client.FetchFile(ctx, "github://acme/apis/missing.yaml")
	assert.ErrorContains(t, err, "not found")

	_, err = client.FetchFile(ctx, "github://acme/apis/private.yaml")
	assert.ErrorContains(t, err, "denied")

	_, err = client.FetchFile(ctx, "github://acme")
	assert.Error(t, err)
}
