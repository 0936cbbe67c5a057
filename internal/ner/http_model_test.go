package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retractor-go/internal/ratelimit"
	"retractor-go/internal/types"
)

func newNERServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPModelInfer(t *testing.T) {
	srv := newNERServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane Doe works at Acme", req.Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":[
			{"start":0,"end":8,"label":"Name","text":"Jane Doe"},
			{"start":18,"end":22,"label":"Companies worked at"}
		]}`))
	})

	m, err := NewHTTPModel(srv.URL, WithAPIKey("secret"), WithTimeout(5*time.Second))
	require.NoError(t, err)

	spans, err := m.Infer(context.Background(), "Jane Doe works at Acme")
	require.NoError(t, err)
	assert.Equal(t, []types.AnnotatedSpan{
		{Start: 0, End: 8, Label: "Name", Text: "Jane Doe"},
		{Start: 18, End: 22, Label: "Companies worked at"},
	}, spans)
}

func TestHTTPModelRejectsInvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"缺少entities", `{"spans":[]}`},
		{"缺少label", `{"entities":[{"start":0,"end":3}]}`},
		{"负偏移", `{"entities":[{"start":-1,"end":3,"label":"Name"}]}`},
		{"非JSON", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newNERServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			m, err := NewHTTPModel(srv.URL)
			require.NoError(t, err)

			_, err = m.Infer(context.Background(), "text")
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestHTTPModelRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newNERServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"entities":[]}`))
	})

	limiter := ratelimit.NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 2)
	m, err := NewHTTPModel(srv.URL, WithRateLimiter(limiter))
	require.NoError(t, err)

	spans, err := m.Infer(context.Background(), "text")
	require.NoError(t, err)
	assert.Empty(t, spans)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPModelClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := newNERServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("text too long"))
	})

	limiter := ratelimit.NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 2)
	m, err := NewHTTPModel(srv.URL, WithRateLimiter(limiter))
	require.NoError(t, err)

	_, err = m.Infer(context.Background(), "text")
	var statusErr *ratelimit.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewHTTPModelRequiresURL(t *testing.T) {
	_, err := NewHTTPModel("")
	assert.Error(t, err)
}

func TestNopAndStaticModel(t *testing.T) {
	spans, err := NopModel{}.Infer(context.Background(), "anything")
	assert.NoError(t, err)
	assert.Empty(t, spans)

	want := []types.AnnotatedSpan{{Label: "Name", Text: "Jane"}}
	got, err := StaticModel{Spans: want}.Infer(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}
