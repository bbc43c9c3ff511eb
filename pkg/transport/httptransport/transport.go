// Package httptransport implements request.Transport on net/http.
package httptransport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
)

// Transport sends requests with an *http.Client.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithLimiter makes every request wait for a token from l.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *Transport) { t.limiter = l }
}

// New creates a Transport. A nil client means http.DefaultClient.
func New(client *http.Client, logger *slog.Logger, opts ...Option) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		client: client,
		logger: logger.With("component", "http_transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get implements request.Transport.
func (t *Transport) Get(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodGet, url, nil, cfg)
}

// Delete implements request.Transport.
func (t *Transport) Delete(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodDelete, url, nil, cfg)
}

// Head implements request.Transport.
func (t *Transport) Head(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodHead, url, nil, cfg)
}

// Options implements request.Transport.
func (t *Transport) Options(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodOptions, url, nil, cfg)
}

// Post implements request.Transport.
func (t *Transport) Post(ctx context.Context, url string, body any, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodPost, url, body, cfg)
}

// Put implements request.Transport.
func (t *Transport) Put(ctx context.Context, url string, body any, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodPut, url, body, cfg)
}

// Patch implements request.Transport.
func (t *Transport) Patch(ctx context.Context, url string, body any, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, http.MethodPatch, url, body, cfg)
}

func (t *Transport) do(ctx context.Context, method, url string, body any, cfg *request.Config) (*request.Response, error) {
	if cfg == nil {
		cfg = &request.Config{}
	}
	finalURL := cfg.ResolveURL(url)
	log := t.logger.With(slog.String("method", method), slog.String("url", finalURL))

	reader, contentType, err := request.MarshalBody(body, cfg.ContentType)
	if err != nil {
		log.Error("Failed to encode request body", slog.Any("error", err))
		return nil, &reqerrors.TransportError{Method: method, URL: finalURL, Cause: err}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &reqerrors.TransportError{Method: method, URL: finalURL, Cause: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, finalURL, reader)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, &reqerrors.TransportError{Method: method, URL: finalURL, Cause: err}
	}
	if cfg.Header != nil {
		req.Header = cfg.Header.Clone()
	}
	if reader != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log.Debug("Executing HTTP request", slog.Any("headers", req.Header))
	resp, err := t.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, &reqerrors.TransportError{Method: method, URL: finalURL, Cause: err}
	}
	defer resp.Body.Close()

	log = log.With(slog.Int("status_code", resp.StatusCode))
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		return nil, &reqerrors.TransportError{Method: method, URL: finalURL, StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Received non-success status code", slog.String("response_body", string(respBody)))
		return nil, &reqerrors.TransportError{Method: method, URL: finalURL, StatusCode: resp.StatusCode, Body: respBody}
	}
	log.Debug("Received HTTP response")
	return request.NewResponse(resp.StatusCode, resp.Header, respBody), nil
}
