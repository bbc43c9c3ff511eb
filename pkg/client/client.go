// Package client assembles and dispatches requests described by an OpenAPI
// document.
//
// A call moves through a fixed sequence: the context is built from the default
// settings, the body is encoded, path, query and header parameters are encoded,
// the global and local security passes run, query fragments and headers are
// folded into the request, and the transport is called. Any failure before the
// last step aborts the call without network I/O.
//
//	doc, _ := lookup.Load(ctx, data)
//	c, _ := client.New(doc, httptransport.New(nil, logger))
//	resp, err := c.Do(ctx, client.Call{
//		Path:   "/users/{id}",
//		Method: request.MethodGet,
//		Params: request.Params{Path: []request.Param{{Name: "id", Value: 5}}},
//	})
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/oapiquery/pkg/bodyenc"
	"github.com/i2y/oapiquery/pkg/lookup"
	"github.com/i2y/oapiquery/pkg/paramenc"
	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
	"github.com/i2y/oapiquery/pkg/security"
	"github.com/i2y/oapiquery/pkg/validation"
)

const instrumentationName = "github.com/i2y/oapiquery/pkg/client"

// Call is one request to make.
type Call struct {
	Path   string
	Method request.Method
	// BodyKey selects the request body media type, e.g. application/json. Empty
	// means no body.
	BodyKey string
	Body    any
	Params  request.Params
	// Validate selects what the validation pre-step checks. Nil skips it.
	Validate *Validate
}

// Validate selects the values checked before assembly.
type Validate struct {
	RequestBody bool
	// Parameters lists parameter names to check per location.
	Parameters map[paramenc.Location][]string
}

// Client builds requests against one document and transport. It is safe for
// concurrent use.
type Client struct {
	doc       *lookup.Document
	transport request.Transport

	contextMaker           ContextMaker
	defaults               func() *request.Config
	silentError            bool
	strictEncoding         bool
	warnOnCookies          bool
	throwOnSecurityMissing bool
	globalHandler          security.Handler
	lookupHandler          security.Handler
	bodyOpts               []bodyenc.Option
	validators             *validation.Registry

	body     *bodyenc.Encoder
	security *security.Dispatcher

	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a Client.
func New(doc *lookup.Document, transport request.Transport, opts ...Option) (*Client, error) {
	if doc == nil {
		return nil, fmt.Errorf("client requires a document")
	}
	if transport == nil {
		return nil, fmt.Errorf("client requires a transport")
	}
	c := &Client{
		doc:                    doc,
		transport:              transport,
		throwOnSecurityMissing: true,
		defaults:               func() *request.Config { return &request.Config{} },
		logger:                 slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(instrumentationName)
	}
	if c.meter == nil {
		c.meter = otel.Meter(instrumentationName)
	}

	var err error
	if c.requests, err = c.meter.Int64Counter("oapiquery.requests",
		metric.WithDescription("Calls made through the client, by outcome.")); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if c.duration, err = c.meter.Float64Histogram("oapiquery.request.duration",
		metric.WithDescription("Duration of calls made through the client."),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	c.logger = c.logger.With("component", "client")
	c.body = bodyenc.New(append([]bodyenc.Option{
		bodyenc.WithStrict(c.strictEncoding),
		bodyenc.WithLogger(c.logger),
	}, c.bodyOpts...)...)
	c.security = security.NewDispatcher(doc, c.throwOnSecurityMissing, c.logger)
	return c, nil
}

// Document returns the document the client was built with.
func (c *Client) Document() *lookup.Document {
	return c.doc
}

// Do assembles the call and hands it to the transport. Transport errors are
// returned as the transport produced them.
func (c *Client) Do(ctx context.Context, call Call) (*request.Response, error) {
	ctx, span := c.tracer.Start(ctx, "oapiquery.Do",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", call.Method.HTTP()),
			attribute.String("url.template", call.Path),
		))
	defer span.End()
	start := time.Now()

	log := c.logger.With(slog.String("method", string(call.Method)), slog.String("path", call.Path))

	resp, err := c.do(ctx, call)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("Call failed", slog.Any("error", err))
	} else {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		log.Debug("Call completed", slog.Int("status_code", resp.StatusCode))
	}
	attrs := metric.WithAttributes(
		attribute.String("method", string(call.Method)),
		attribute.String("path", call.Path),
		attribute.String("outcome", outcome),
	)
	c.requests.Add(ctx, 1, attrs)
	c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	return resp, err
}

func (c *Client) do(ctx context.Context, call Call) (*request.Response, error) {
	rc, err := c.Prepare(ctx, call)
	if err != nil {
		return nil, err
	}
	return c.dispatch(ctx, rc)
}

// Prepare runs every step except dispatch and returns the finalized context.
func (c *Client) Prepare(ctx context.Context, call Call) (*request.Context, error) {
	if err := c.validate(&call); err != nil {
		return nil, err
	}

	op, err := c.doc.Operation(call.Path, string(call.Method))
	if err != nil {
		return nil, err
	}
	rc := request.New(call.Path, call.Method, c.defaults().Clone(), op)
	if c.contextMaker != nil {
		if rc, err = c.contextMaker(rc); err != nil {
			return nil, fmt.Errorf("context maker failed: %w", err)
		}
		if rc == nil || rc.Request == nil {
			return nil, fmt.Errorf("context maker returned no request")
		}
	}

	if call.BodyKey != "" {
		if err := c.encodeBody(call, rc); err != nil {
			return nil, err
		}
	}
	if !call.Params.Empty() {
		if err := c.encodeParameters(call.Params, rc); err != nil {
			return nil, err
		}
	}

	if c.globalHandler != nil {
		if err := c.security.Global(rc, c.globalHandler); err != nil {
			return nil, err
		}
	}
	if c.lookupHandler != nil {
		if err := c.security.Local(rc, c.lookupHandler); err != nil {
			return nil, err
		}
	}

	rc.Finalize()
	return rc, nil
}

func (c *Client) encodeBody(call Call, rc *request.Context) error {
	if call.Body == nil {
		return &reqerrors.EncodingError{ContentType: call.BodyKey, Message: "no content to encode"}
	}
	if rc.Lookup.Operation.RequestBody == nil {
		return &reqerrors.LookupError{
			Kind:    reqerrors.KindRequestBody,
			Key:     call.BodyKey,
			Message: fmt.Sprintf("%s %s has no request body", call.Method, call.Path),
		}
	}
	body, err := c.doc.RequestBody(rc.Lookup.Operation.RequestBody)
	if err != nil {
		return err
	}

	var media *openapi3.MediaType
	if mt, ok := body.Content[call.BodyKey]; ok {
		media = mt
	} else {
		media = body.Content.Get(call.BodyKey)
	}
	return c.body.Encode(bodyenc.BodyCall{
		Path:        call.Path,
		Method:      call.Method,
		ContentType: call.BodyKey,
		Content:     call.Body,
		MediaType:   media,
	}, rc)
}

func (c *Client) encodeParameters(params request.Params, rc *request.Context) error {
	local, err := c.doc.Parameters(rc.Lookup.Operation.Parameters)
	if err != nil {
		return err
	}
	shared, err := c.doc.Parameters(rc.Lookup.PathItem.Parameters)
	if err != nil {
		return err
	}
	find := func(name string, in paramenc.Location) (paramenc.Descriptor, error) {
		for _, group := range [][]*openapi3.Parameter{local, shared} {
			for _, p := range group {
				if p.Name == name && paramenc.Location(p.In) == in {
					return paramenc.FromParameter(p), nil
				}
			}
		}
		return paramenc.Descriptor{}, &reqerrors.LookupError{
			Kind:    reqerrors.KindParameter,
			Key:     name,
			Message: fmt.Sprintf("no %s parameter declared for %s %s", in, rc.Method, rc.Path),
		}
	}

	for _, p := range params.Path {
		d, err := find(p.Name, paramenc.LocationPath)
		if err != nil {
			return err
		}
		url, err := paramenc.SubstitutePath(rc.Request.URL, p.Name, p.Value, d)
		if err != nil {
			return err
		}
		rc.Request.URL = url
	}
	for _, p := range params.Query {
		d, err := find(p.Name, paramenc.LocationQuery)
		if err != nil {
			return err
		}
		fragment, err := paramenc.EncodeQuery(p.Name, p.Value, d)
		if err != nil {
			return err
		}
		rc.AddQuery(fragment)
	}
	for _, p := range params.Headers {
		d, err := find(p.Name, paramenc.LocationHeader)
		if err != nil {
			return err
		}
		value, err := paramenc.EncodeHeader(p.Name, p.Value, d)
		if err != nil {
			return err
		}
		rc.AddHeader(p.Name, value)
	}
	if len(params.Cookies) > 0 && c.warnOnCookies {
		names := make([]string, len(params.Cookies))
		for i, p := range params.Cookies {
			names[i] = p.Name
		}
		c.logger.Warn("Cookies are set inside the parameters, but they cannot be encoded", slog.Any("cookies", names))
	}
	return nil
}

func (c *Client) dispatch(ctx context.Context, rc *request.Context) (*request.Response, error) {
	cfg := rc.Request
	switch rc.Method {
	case request.MethodGet:
		return c.transport.Get(ctx, cfg.URL, cfg)
	case request.MethodDelete:
		return c.transport.Delete(ctx, cfg.URL, cfg)
	case request.MethodOptions:
		return c.transport.Options(ctx, cfg.URL, cfg)
	case request.MethodHead:
		return c.transport.Head(ctx, cfg.URL, cfg)
	case request.MethodPatch:
		return c.transport.Patch(ctx, cfg.URL, cfg.Body, cfg)
	case request.MethodPost:
		return c.transport.Post(ctx, cfg.URL, cfg.Body, cfg)
	case request.MethodPut:
		return c.transport.Put(ctx, cfg.URL, cfg.Body, cfg)
	case request.MethodTrace:
		return nil, fmt.Errorf("%w: trace", reqerrors.ErrUnsupportedMethod)
	}
	return nil, fmt.Errorf("%w: %q", reqerrors.ErrUnsupportedMethod, rc.Method)
}
