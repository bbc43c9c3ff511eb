package client

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/oapiquery/pkg/bodyenc"
	"github.com/i2y/oapiquery/pkg/request"
	"github.com/i2y/oapiquery/pkg/security"
	"github.com/i2y/oapiquery/pkg/validation"
)

// ContextMaker may replace or decorate the freshly built context of a call.
type ContextMaker func(rc *request.Context) (*request.Context, error)

// Option configures a Client.
type Option func(*Client)

// WithContextMaker sets the hook run right after a call's context is built.
func WithContextMaker(fn ContextMaker) Option {
	return func(c *Client) { c.contextMaker = fn }
}

// WithSilentError logs requested-but-missing validators instead of failing.
func WithSilentError(silent bool) Option {
	return func(c *Client) { c.silentError = silent }
}

// WithStrictEncoding requires an explicit encoding entry for every multipart field.
func WithStrictEncoding(strict bool) Option {
	return func(c *Client) { c.strictEncoding = strict }
}

// WithWarnOnCookies logs a warning when the parameter bag carries cookies.
func WithWarnOnCookies(warn bool) Option {
	return func(c *Client) { c.warnOnCookies = warn }
}

// WithThrowOnSecurityMissing controls whether a requirement naming an undefined
// scheme fails the call. Defaults to true.
func WithThrowOnSecurityMissing(throw bool) Option {
	return func(c *Client) { c.throwOnSecurityMissing = throw }
}

// WithDefaultSettings sets the base request config. It is cloned for every call.
func WithDefaultSettings(cfg *request.Config) Option {
	return func(c *Client) {
		c.defaults = func() *request.Config { return cfg.Clone() }
	}
}

// WithDefaultSettingsFunc sets a constructor for the base request config.
func WithDefaultSettingsFunc(fn func() *request.Config) Option {
	return func(c *Client) { c.defaults = fn }
}

// WithGlobalSecurityHandler sets the handler for document level requirements.
func WithGlobalSecurityHandler(h security.Handler) Option {
	return func(c *Client) { c.globalHandler = h }
}

// WithLookupSecurityHandler sets the handler for operation level requirements.
func WithLookupSecurityHandler(h security.Handler) Option {
	return func(c *Client) { c.lookupHandler = h }
}

// WithBodyParser registers a parser for a request body content type.
func WithBodyParser(contentType string, p bodyenc.BodyParser) Option {
	return func(c *Client) { c.bodyOpts = append(c.bodyOpts, bodyenc.WithBodyParser(contentType, p)) }
}

// WithFormEncoder registers a multipart part encoder for a content type.
func WithFormEncoder(contentType string, fe bodyenc.FormEncoder) Option {
	return func(c *Client) { c.bodyOpts = append(c.bodyOpts, bodyenc.WithFormEncoder(contentType, fe)) }
}

// WithValidators enables the validation pre-step.
func WithValidators(reg *validation.Registry) Option {
	return func(c *Client) { c.validators = reg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracer sets the tracer used for call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithMeter sets the meter the call instruments are created from.
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) { c.meter = meter }
}
