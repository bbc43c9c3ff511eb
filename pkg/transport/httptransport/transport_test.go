package httptransport_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/i2y/oapiquery/pkg/bodyenc"
	"github.com/i2y/oapiquery/pkg/reqerrors"
	"github.com/i2y/oapiquery/pkg/request"
	"github.com/i2y/oapiquery/pkg/transport/httptransport"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, opts ...httptransport.Option) (*httptransport.Transport, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return httptransport.New(server.Client(), logger, opts...), server
}

func TestTransport_Verbs(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		send       func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error)
		wantMethod string
		wantBody   string
	}{
		{
			name: "GET",
			send: func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error) {
				return tr.Get(ctx, cfg.URL, cfg)
			},
			wantMethod: http.MethodGet,
		},
		{
			name: "DELETE",
			send: func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error) {
				return tr.Delete(ctx, cfg.URL, cfg)
			},
			wantMethod: http.MethodDelete,
		},
		{
			name: "OPTIONS",
			send: func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error) {
				return tr.Options(ctx, cfg.URL, cfg)
			},
			wantMethod: http.MethodOptions,
		},
		{
			name: "POST",
			send: func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error) {
				return tr.Post(ctx, cfg.URL, map[string]any{"name": "rex"}, cfg)
			},
			wantMethod: http.MethodPost,
			wantBody:   `{"name":"rex"}`,
		},
		{
			name: "PUT",
			send: func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error) {
				return tr.Put(ctx, cfg.URL, "raw", cfg)
			},
			wantMethod: http.MethodPut,
			wantBody:   "raw",
		},
		{
			name: "PATCH",
			send: func(tr *httptransport.Transport, cfg *request.Config) (*request.Response, error) {
				return tr.Patch(ctx, cfg.URL, []byte(`{"a":1}`), cfg)
			},
			wantMethod: http.MethodPatch,
			wantBody:   `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, "/users/5", r.URL.Path)
				assert.Equal(t, "true", r.URL.Query().Get("active"))
				assert.Equal(t, "abc", r.Header.Get("X-Trace"))
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, tt.wantBody, string(body))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"ok":true}`))
			})

			cfg := &request.Config{
				BaseURL: server.URL,
				URL:     "/users/5?active=true",
				Header:  http.Header{"X-Trace": []string{"abc"}},
			}
			resp, err := tt.send(tr, cfg)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, map[string]any{"ok": true}, resp.Data)
		})
	}
}

func TestTransport_Head(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := tr.Head(context.Background(), server.URL+"/ping", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestTransport_Multipart(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "name", part.FormName())
		value, _ := io.ReadAll(part)
		assert.Equal(t, "rex", string(value))

		w.Write([]byte("created"))
	})

	form := bodyenc.NewForm()
	require.NoError(t, form.WriteField("name", "rex"))

	resp, err := tr.Post(context.Background(), server.URL+"/pets", form, &request.Config{})
	require.NoError(t, err)
	assert.Equal(t, "created", resp.Data)
}

func TestTransport_NonSuccessStatus(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"user not found"}`))
	})

	_, err := tr.Get(context.Background(), server.URL+"/users/9", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, reqerrors.ErrTransport))

	var te *reqerrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.JSONEq(t, `{"error":"user not found"}`, string(te.Body))
}

func TestTransport_ConnectionFailure(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {})
	url := server.URL
	server.Close()

	_, err := tr.Get(context.Background(), url+"/users", nil)
	var te *reqerrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.Error(t, te.Cause)
}

func TestTransport_Timeout(t *testing.T) {
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := tr.Get(context.Background(), server.URL, &request.Config{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_Limiter(t *testing.T) {
	calls := 0
	tr, server := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	}, httptransport.WithLimiter(rate.NewLimiter(rate.Limit(1), 1)))

	_, err := tr.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)

	// The single token is spent, so the next wait outlives the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = tr.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, reqerrors.ErrTransport)
	assert.Equal(t, 1, calls)
}
