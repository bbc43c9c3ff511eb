package request_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/oapiquery/pkg/request"
)

func TestParseMethod(t *testing.T) {
	m, err := request.ParseMethod("PATCH")
	require.NoError(t, err)
	assert.Equal(t, request.MethodPatch, m)
	assert.Equal(t, "PATCH", m.HTTP())
	assert.True(t, m.HasBody())
	assert.False(t, request.MethodGet.HasBody())

	_, err = request.ParseMethod("connect")
	assert.Error(t, err)
}

func TestConfigClone(t *testing.T) {
	base := &request.Config{BaseURL: "http://api", Header: http.Header{"X-Default": {"1"}}}
	clone := base.Clone()
	clone.Header.Set("X-Default", "2")
	clone.URL = "/changed"

	assert.Equal(t, "1", base.Header.Get("X-Default"))
	assert.Empty(t, base.URL)
	assert.Equal(t, "http://api", clone.BaseURL)

	assert.NotNil(t, (*request.Config)(nil).Clone().Header)
}

func TestContextFinalize(t *testing.T) {
	rc := request.New("/users/5", request.MethodGet, nil, nil)
	rc.AddQuery("active=true")
	rc.AddQuery("")
	rc.AddQuery("id=1&id=2")
	rc.AddHeader("X-Trace", "a")
	rc.AddHeader("X-Trace", "b")
	rc.AddHeader("X-Other", "c")

	require.Len(t, rc.Headers, 3, "duplicate names are kept until finalization")
	rc.Finalize()

	assert.Equal(t, "/users/5?active=true&id=1&id=2", rc.Request.URL)
	assert.Equal(t, "b", rc.Request.Header.Get("X-Trace"), "last write wins")
	assert.Equal(t, "c", rc.Request.Header.Get("X-Other"))
}

func TestContextFinalize_NoQuery(t *testing.T) {
	rc := request.New("/plain", request.MethodGet, &request.Config{}, nil)
	rc.Finalize()
	assert.Equal(t, "/plain", rc.Request.URL)
}

type encoded struct{}

func (encoded) Reader() io.Reader   { return strings.NewReader("raw") }
func (encoded) ContentType() string { return "multipart/form-data; boundary=x" }

func TestMarshalBody(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		ct         string
		wantBody   string
		wantCT     string
		wantReader bool
	}{
		{name: "nil", body: nil, ct: "", wantReader: false},
		{name: "json value", body: map[string]any{"a": 1}, wantBody: `{"a":1}`, wantCT: "application/json", wantReader: true},
		{name: "json keeps content type", body: []int{1}, ct: "application/vnd.api+json", wantBody: `[1]`, wantCT: "application/vnd.api+json", wantReader: true},
		{name: "string", body: "text", ct: "text/plain", wantBody: "text", wantCT: "text/plain", wantReader: true},
		{name: "bytes", body: []byte("b"), ct: "application/octet-stream", wantBody: "b", wantCT: "application/octet-stream", wantReader: true},
		{name: "encoded body", body: encoded{}, ct: "ignored", wantBody: "raw", wantCT: "multipart/form-data; boundary=x", wantReader: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ct, err := request.MarshalBody(tt.body, tt.ct)
			require.NoError(t, err)
			if !tt.wantReader {
				assert.Nil(t, r)
				return
			}
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(data))
			assert.Equal(t, tt.wantCT, ct)
		})
	}

	_, _, err := request.MarshalBody(func() {}, "")
	assert.Error(t, err)
}

func TestNewResponse(t *testing.T) {
	resp := request.NewResponse(200, http.Header{"Content-Type": {"application/json"}}, []byte(`{"id":5}`))
	assert.Equal(t, map[string]any{"id": float64(5)}, resp.Data)

	resp = request.NewResponse(200, http.Header{"Content-Type": {"application/json"}}, []byte(`not json`))
	assert.Equal(t, "not json", resp.Data)

	resp = request.NewResponse(204, http.Header{}, nil)
	assert.Equal(t, "", resp.Data)
}
