// Package fasthttptransport implements request.Transport on valyala/fasthttp.
//
// fasthttp has no context support, so a context deadline is turned into a
// request deadline and cancellation is only checked before the request is sent.
package fasthttptransport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
)

// Transport sends requests with a *fasthttp.Client.
type Transport struct {
	client  *fasthttp.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithLimiter makes every request wait for a token from l.
func WithLimiter(l *rate.Limiter) Option {
	return func(t *Transport) { t.limiter = l }
}

// New creates a Transport. A nil client means a zero fasthttp.Client.
func New(client *fasthttp.Client, logger *slog.Logger, opts ...Option) *Transport {
	if client == nil {
		client = &fasthttp.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		client: client,
		logger: logger.With("component", "fasthttp_transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Get(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodGet, url, nil, cfg)
}

func (t *Transport) Delete(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodDelete, url, nil, cfg)
}

func (t *Transport) Head(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodHead, url, nil, cfg)
}

func (t *Transport) Options(ctx context.Context, url string, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodOptions, url, nil, cfg)
}

func (t *Transport) Post(ctx context.Context, url string, body any, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodPost, url, body, cfg)
}

func (t *Transport) Put(ctx context.Context, url string, body any, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodPut, url, body, cfg)
}

func (t *Transport) Patch(ctx context.Context, url string, body any, cfg *request.Config) (*request.Response, error) {
	return t.do(ctx, fasthttp.MethodPatch, url, body, cfg)
}

func (t *Transport) do(ctx context.Context, method, url string, body any, cfg *request.Config) (*request.Response, error) {
	if cfg == nil {
		cfg = &request.Config{}
	}
	finalURL := cfg.ResolveURL(url)
	log := t.logger.With(slog.String("method", method), slog.String("url", finalURL))
	fail := func(status int, err error) error {
		return &reqerrors.TransportError{Method: method, URL: finalURL, StatusCode: status, Cause: err}
	}

	reader, contentType, err := request.MarshalBody(body, cfg.ContentType)
	if err != nil {
		return nil, fail(0, err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fail(0, fmt.Errorf("rate limiter: %w", err))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(0, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(finalURL)
	for name, values := range cfg.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if reader != nil {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fail(0, fmt.Errorf("failed to read request body: %w", err))
		}
		req.SetBody(data)
		if contentType != "" {
			req.Header.SetContentType(contentType)
		}
	}
	if method == fasthttp.MethodHead {
		resp.SkipBody = true
	}

	log.Debug("Executing HTTP request")
	if deadline, ok := ctx.Deadline(); ok {
		err = t.client.DoDeadline(req, resp, deadline)
	} else {
		err = t.client.Do(req, resp)
	}
	if err != nil {
		if err == fasthttp.ErrTimeout {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, fail(0, err)
	}

	status := resp.StatusCode()
	respBody := append([]byte(nil), resp.Body()...)
	header := http.Header{}
	resp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	log = log.With(slog.Int("status_code", status))
	if status < 200 || status >= 300 {
		log.Warn("Received non-success status code", slog.String("response_body", string(respBody)))
		return nil, &reqerrors.TransportError{Method: method, URL: finalURL, StatusCode: status, Body: respBody}
	}
	log.Debug("Received HTTP response")
	return request.NewResponse(status, header, respBody), nil
}
