package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport executes assembled requests. url is the finalized path and query,
// relative to cfg.BaseURL unless absolute. Trace has no operation here.
type Transport interface {
	Get(ctx context.Context, url string, cfg *Config) (*Response, error)
	Delete(ctx context.Context, url string, cfg *Config) (*Response, error)
	Head(ctx context.Context, url string, cfg *Config) (*Response, error)
	Options(ctx context.Context, url string, cfg *Config) (*Response, error)
	Post(ctx context.Context, url string, body any, cfg *Config) (*Response, error)
	Put(ctx context.Context, url string, body any, cfg *Config) (*Response, error)
	Patch(ctx context.Context, url string, body any, cfg *Config) (*Response, error)
}

// Response is what a transport returns for a 2xx answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Data is the decoded JSON body, or the body as a string when it is not JSON.
	Data any
}

// NewResponse decodes body as JSON when the content type says so.
func NewResponse(status int, header http.Header, body []byte) *Response {
	resp := &Response{StatusCode: status, Header: header, Body: body}
	if strings.Contains(header.Get("Content-Type"), "json") && len(body) > 0 {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			resp.Data = data
			return resp
		}
	}
	resp.Data = string(body)
	return resp
}

// MarshalBody turns a Config body into bytes on the wire and its content type.
// Values that are not already encoded are marshaled as JSON.
func MarshalBody(body any, contentType string) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, contentType, nil
	case EncodedBody:
		return b.Reader(), b.ContentType(), nil
	case io.Reader:
		return b, contentType, nil
	case []byte:
		return bytes.NewReader(b), contentType, nil
	case string:
		return strings.NewReader(b), contentType, nil
	case json.RawMessage:
		return bytes.NewReader(b), orJSON(contentType), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(data), orJSON(contentType), nil
}

func orJSON(contentType string) string {
	if contentType == "" {
		return "application/json"
	}
	return contentType
}
