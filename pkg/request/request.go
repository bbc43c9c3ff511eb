// Package request holds the per-call state the client assembles before handing
// a request to a Transport.
package request

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/i2y/oapiquery/pkg/lookup"
)

// Method is a lowercase operation key of a path item.
type Method string

const (
	MethodGet     Method = "get"
	MethodPut     Method = "put"
	MethodPost    Method = "post"
	MethodDelete  Method = "delete"
	MethodOptions Method = "options"
	MethodHead    Method = "head"
	MethodPatch   Method = "patch"
	MethodTrace   Method = "trace"
)

// ParseMethod accepts any casing of the eight OpenAPI operation keys.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(s))
	switch m {
	case MethodGet, MethodPut, MethodPost, MethodDelete, MethodOptions, MethodHead, MethodPatch, MethodTrace:
		return m, nil
	}
	return "", fmt.Errorf("unknown method %q", s)
}

// HTTP returns the method as used on the wire.
func (m Method) HTTP() string {
	return strings.ToUpper(string(m))
}

// HasBody reports whether the transport operation for m carries a body.
func (m Method) HasBody() bool {
	return m == MethodPatch || m == MethodPost || m == MethodPut
}

// Param is one named parameter value.
type Param struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

// Params is the caller's parameter bag. Order within each group is kept.
type Params struct {
	Path    []Param `yaml:"path" json:"path"`
	Query   []Param `yaml:"query" json:"query"`
	Headers []Param `yaml:"headers" json:"headers"`
	Cookies []Param `yaml:"cookies" json:"cookies"`
}

// Clone copies every group so values can be replaced without touching p.
func (p Params) Clone() Params {
	return Params{
		Path:    append([]Param(nil), p.Path...),
		Query:   append([]Param(nil), p.Query...),
		Headers: append([]Param(nil), p.Headers...),
		Cookies: append([]Param(nil), p.Cookies...),
	}
}

// Empty reports whether no group holds a parameter.
func (p Params) Empty() bool {
	return len(p.Path) == 0 && len(p.Query) == 0 && len(p.Headers) == 0 && len(p.Cookies) == 0
}

// Config is the transport-facing request description. The client clones the
// configured defaults into a fresh Config for every call.
type Config struct {
	// BaseURL is prefixed to URL by the transport when URL is relative.
	BaseURL string
	// URL starts as the path template and ends as the final path plus query.
	URL string
	// Header holds default headers and, after finalization, every encoded header.
	Header http.Header
	// Body is the payload: an EncodedBody, io.Reader, []byte, string, or a value
	// to be marshaled as JSON.
	Body any
	// ContentType is the request body media type, if any.
	ContentType string
	// Timeout bounds the round trip when non-zero.
	Timeout time.Duration
}

// Clone returns a deep copy of the headers and a shallow copy of the rest.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{Header: http.Header{}}
	}
	out := *c
	out.Header = c.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	return &out
}

// ResolveURL prefixes BaseURL to a relative url.
func (c *Config) ResolveURL(url string) string {
	if c == nil || c.BaseURL == "" || strings.Contains(url, "://") {
		return url
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

// Header is one encoded header pair. The list on Context may repeat names.
type Header struct {
	Name  string
	Value string
}

// Context is the mutable state of a single call. It is created by the client,
// handed to hooks and encoders in-line, and must not be retained after the call.
type Context struct {
	Request *Config
	// Query holds encoded key=value fragments in the order they were produced.
	Query []string
	// Headers holds encoded header pairs in the order they were produced.
	Headers []Header
	Lookup  *lookup.OperationContext
	Method  Method
	// Path is the path template the call was made with.
	Path string
	// Values is free-form storage for caller hooks.
	Values map[string]any
}

// New returns a Context for path and method with cfg as the request.
func New(path string, method Method, cfg *Config, op *lookup.OperationContext) *Context {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Header == nil {
		cfg.Header = http.Header{}
	}
	cfg.URL = path
	return &Context{
		Request: cfg,
		Lookup:  op,
		Method:  method,
		Path:    path,
		Values:  map[string]any{},
	}
}

// AddQuery appends an encoded query fragment.
func (c *Context) AddQuery(fragment string) {
	if fragment == "" {
		return
	}
	c.Query = append(c.Query, fragment)
}

// AddHeader appends a header pair.
func (c *Context) AddHeader(name, value string) {
	c.Headers = append(c.Headers, Header{Name: name, Value: value})
}

// Finalize appends the query fragments to the URL and merges header pairs into
// Request.Header. A later pair for the same name overwrites an earlier one.
func (c *Context) Finalize() {
	if len(c.Query) > 0 {
		sep := "?"
		if strings.Contains(c.Request.URL, "?") {
			sep = "&"
		}
		c.Request.URL += sep + strings.Join(c.Query, "&")
	}
	for _, h := range c.Headers {
		c.Request.Header.Set(h.Name, h.Value)
	}
}

// File is a file-like multipart value.
type File struct {
	// Name is the filename reported in the part's Content-Disposition.
	Name string
	// ContentType defaults to application/octet-stream.
	ContentType string
	Content     io.Reader
}

// EncodedBody is a body that already knows its wire form, such as a multipart form.
type EncodedBody interface {
	Reader() io.Reader
	ContentType() string
}
