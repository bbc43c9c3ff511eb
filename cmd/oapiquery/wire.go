package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/i2y/oapiquery/configs"
	"github.com/i2y/oapiquery/internal/adapter/outbound/github"
	"github.com/i2y/oapiquery/internal/adapter/outbound/openapi"
	"github.com/i2y/oapiquery/internal/usecase"
	"github.com/i2y/oapiquery/pkg/client"
	"github.com/i2y/oapiquery/pkg/request"
	"github.com/i2y/oapiquery/pkg/security"
	"github.com/i2y/oapiquery/pkg/transport/fasthttptransport"
	"github.com/i2y/oapiquery/pkg/transport/httptransport"
	"github.com/i2y/oapiquery/pkg/validation"
)

func newFetcher(cfg *configs.Config, logger *slog.Logger) *openapi.DocumentFetcher {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	var ghOpts []github.Option
	if cfg.GitHubToken != "" {
		ghOpts = append(ghOpts, github.WithToken(cfg.GitHubToken))
	}
	if cfg.GitHubAPIURL != "" {
		ghOpts = append(ghOpts, github.WithAPIBase(cfg.GitHubAPIURL))
	}
	return openapi.NewDocumentFetcher(httpClient, logger,
		openapi.WithGitHubClient(github.NewClient(httpClient, logger, ghOpts...)))
}

func newTransport(cfg *configs.Config, logger *slog.Logger) request.Transport {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	switch cfg.Transport {
	case configs.TransportFastHTTP:
		fc := &fasthttp.Client{
			Name:         "oapiquery",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		}
		return fasthttptransport.New(fc, logger, fasthttptransport.WithLimiter(limiter))
	default:
		return httptransport.New(&http.Client{Timeout: cfg.Timeout}, logger, httptransport.WithLimiter(limiter))
	}
}

// newClient builds a client for loaded using the configured defaults,
// credentials and document-derived validators.
func newClient(ctx context.Context, cfg *configs.Config, loaded *usecase.LoadedDocument, transport request.Transport, logger *slog.Logger) (*client.Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = loaded.ServerURL
	}
	header := http.Header{}
	for name, value := range cfg.Headers {
		header.Set(name, value)
	}

	validators, err := validation.FromDocument(ctx, loaded.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to derive validators: %w", err)
	}

	opts := []client.Option{
		client.WithDefaultSettings(&request.Config{BaseURL: baseURL, Header: header, Timeout: cfg.Timeout}),
		client.WithSilentError(cfg.SilentError),
		client.WithStrictEncoding(cfg.StrictEncoding),
		client.WithWarnOnCookies(cfg.WarnOnCookies),
		client.WithThrowOnSecurityMissing(cfg.ThrowOnMissingScheme()),
		client.WithValidators(validators),
		client.WithLogger(logger),
	}

	if len(cfg.Credentials) > 0 {
		reg := security.NewRegistry()
		for scheme, cred := range cfg.Credentials {
			reg.ForScheme(scheme, cred)
		}
		opts = append(opts,
			client.WithGlobalSecurityHandler(reg),
			client.WithLookupSecurityHandler(reg),
		)
	}
	return client.New(loaded.Document, transport, opts...)
}
