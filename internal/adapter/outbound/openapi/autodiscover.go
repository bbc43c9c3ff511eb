package openapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Well-known document locations served by common frameworks.
var commonOpenAPIPaths = []string{
	"/openapi.json",            // FastAPI
	"/docs/openapi.json",       // FastAPI
	"/swagger.json",            // Swagger
	"/v3/api-docs",             // SpringDoc
	"/api-docs",                // SpringFox
	"/api/openapi.json",
	"/api/v1/openapi.json",
	"/api/swagger.json",
	"/swagger/v1/swagger.json", // .NET
	"/openapi.yaml",
	"/_spec",
	"/spec",
}

const probeTimeout = 5 * time.Second

// AutoDiscoverer finds the document of a service given only its base URL.
type AutoDiscoverer struct {
	client *http.Client
	logger *slog.Logger
}

// NewAutoDiscoverer creates an AutoDiscoverer.
func NewAutoDiscoverer(client *http.Client, logger *slog.Logger) *AutoDiscoverer {
	return &AutoDiscoverer{
		client: client,
		logger: logger.With("component", "openapi_autodiscoverer"),
	}
}

// Resolve returns source unchanged when it already names a document, otherwise
// the first well-known path under it that serves one. When nothing is found the
// given source is returned so that the fetch reports the real failure.
func (d *AutoDiscoverer) Resolve(ctx context.Context, source string, headers map[string]string) (string, error) {
	log := d.logger.With(slog.String("source", source))
	if looksLikeDocument(source) {
		return source, nil
	}

	log.Debug("Source appears to be a base URL, attempting auto-discovery")
	base := strings.TrimRight(source, "/")
	for _, path := range commonOpenAPIPaths {
		candidate := base + path
		ok, err := d.probe(ctx, candidate, headers)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Debug("Failed to check endpoint", slog.String("url", candidate), slog.Any("error", err))
			continue
		}
		if ok {
			return candidate, nil
		}
	}
	log.Warn("Auto-discovery failed, using given source")
	return source, nil
}

func looksLikeDocument(source string) bool {
	lower := strings.ToLower(source)
	for _, suffix := range []string{".json", ".yaml", ".yml"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return strings.Contains(lower, "openapi") ||
		strings.Contains(lower, "swagger") ||
		strings.Contains(lower, "api-docs")
}

func (d *AutoDiscoverer) probe(ctx context.Context, target string, headers map[string]string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json, application/vnd.oai.openapi+json, application/yaml")
	req.Header.Set("User-Agent", "oapiquery/1.0")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "json") || strings.Contains(contentType, "yaml"), nil
}
