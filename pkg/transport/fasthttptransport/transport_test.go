package fasthttptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
	"github.com/i2y/oapiquery/pkg/transport/fasthttptransport"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc) (*fasthttptransport.Transport, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return fasthttptransport.New(&fasthttp.Client{}, logger), server
}

func TestTransport_GetWithHeaders(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/5", r.URL.Path)
		assert.Equal(t, "active=true", r.URL.RawQuery)
		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "42")
		w.Write([]byte(`{"id":5}`))
	})

	cfg := &request.Config{
		BaseURL: server.URL,
		Header:  http.Header{"Authorization": []string{"Bearer t0k"}},
	}
	resp, err := tr.Get(context.Background(), "/users/5?active=true", cfg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(5)}, resp.Data)
	assert.Equal(t, "42", resp.Header.Get("X-Request-Id"))
}

func TestTransport_PostJSON(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"rex","tag":"dog"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	})

	payload := map[string]any{"name": "rex", "tag": "dog"}
	resp, err := tr.Post(context.Background(), server.URL+"/pets", payload, &request.Config{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestTransport_PutKeepsContentType(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello", string(body))
	})

	_, err := tr.Put(context.Background(), server.URL, "hello", &request.Config{ContentType: "text/plain"})
	require.NoError(t, err)
}

func TestTransport_NonSuccessStatus(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("duplicate"))
	})

	_, err := tr.Delete(context.Background(), server.URL+"/pets/1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, reqerrors.ErrTransport)

	var te *reqerrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusConflict, te.StatusCode)
	assert.Equal(t, http.MethodDelete, te.Method)
	assert.Equal(t, "duplicate", string(te.Body))
}

func TestTransport_CanceledContext(t *testing.T) {
	called := false
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTransport_Timeout(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	_, err := tr.Options(context.Background(), server.URL, &request.Config{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
