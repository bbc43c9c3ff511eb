package openapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/internal/adapter/outbound/github"
	"github.com/i2y/oapiquery/internal/usecase"
	"github.com/i2y/oapiquery/pkg/lookup"
)

// DocumentFetcher implements usecase.DocumentLoader for local files, http(s)
// URLs and github:// sources.
type DocumentFetcher struct {
	httpClient     *http.Client
	logger         *slog.Logger
	autoDiscoverer *AutoDiscoverer
	github         *github.Client
}

// FetcherOption configures a DocumentFetcher.
type FetcherOption func(*DocumentFetcher)

// WithGitHubClient replaces the unauthenticated client used for github:// sources.
func WithGitHubClient(c *github.Client) FetcherOption {
	return func(f *DocumentFetcher) { f.github = c }
}

// NewDocumentFetcher creates a DocumentFetcher. A nil client means
// http.DefaultClient.
func NewDocumentFetcher(client *http.Client, logger *slog.Logger, opts ...FetcherOption) *DocumentFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &DocumentFetcher{
		httpClient:     client,
		logger:         logger.With("component", "openapi_fetcher"),
		autoDiscoverer: NewAutoDiscoverer(client, logger),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.github == nil {
		f.github = github.NewClient(client, logger)
	}
	return f
}

// Load reads, parses and wraps the document named by src.
func (f *DocumentFetcher) Load(ctx context.Context, src usecase.DocumentSource) (*usecase.LoadedDocument, error) {
	log := f.logger.With(slog.String("source", src.Location))
	log.Debug("Loading OpenAPI document")

	resolved := src.Location
	if isRemote(src.Location) {
		var err error
		resolved, err = f.autoDiscoverer.Resolve(ctx, src.Location, src.Headers)
		if err != nil {
			return nil, err
		}
		if resolved != src.Location {
			log.Info("Auto-discovered OpenAPI document", slog.String("resolved_url", resolved))
		}
	}

	var raw []byte
	var err error
	switch {
	case github.IsGitHubURL(resolved):
		raw, err = f.github.FetchFile(ctx, resolved)
	case isRemote(resolved):
		raw, err = f.download(ctx, resolved, src.Headers)
	default:
		raw, err = os.ReadFile(resolved)
		if err != nil {
			err = fmt.Errorf("failed to read document from file %s: %w", resolved, err)
		}
	}
	if err != nil {
		log.Error("Failed to read OpenAPI document", slog.Any("error", err))
		return nil, err
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		log.Error("Failed to parse OpenAPI document", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse OpenAPI document from %s: %w", src.Location, err)
	}
	if validateErr := spec.Validate(ctx); validateErr != nil {
		log.Warn("OpenAPI document validation failed", slog.Any("validation_error", validateErr))
	}

	doc, err := lookup.NewDocument(spec)
	if err != nil {
		return nil, err
	}

	serverURL, err := ServerURL(resolved, spec.Servers)
	if err != nil {
		log.Debug("No usable server URL in document", slog.Any("error", err))
	}
	log.Info("Loaded OpenAPI document", slog.Int("operations", len(doc.Operations())))
	return &usecase.LoadedDocument{
		Source:    src.Location,
		Resolved:  resolved,
		Raw:       raw,
		Document:  doc,
		ServerURL: serverURL,
	}, nil
}

func (f *DocumentFetcher) download(ctx context.Context, target string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document from URL %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch document from URL %s: status %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", target, err)
	}
	return body, nil
}

func isRemote(src string) bool {
	u, err := url.ParseRequestURI(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
