package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(retries int) *Client {
	return New(Options{Service: "test", Retries: retries, Backoff: time.Millisecond})
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"score":1450}`))
	}))
	defer srv.Close()

	var out struct{ Score int }
	require.NoError(t, newTestClient(0).GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, 1450, out.Score)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(2).GetJSON(context.Background(), srv.URL, nil))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newTestClient(1).GetJSON(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, RateLimited, CategoryOf(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := newTestClient(3).GetJSON(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.Status)
}

func TestBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestClient(2).GetJSON(context.Background(), srv.URL, &out)
	assert.Equal(t, BadData, CategoryOf(err))
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"result":"0x01"}`))
	}))
	defer srv.Close()

	var out struct{ Result string }
	require.NoError(t, newTestClient(0).PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, &out))
	assert.Equal(t, "0x01", out.Result)
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, Internal, CategoryOf(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestGetBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "*/*", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`<p>vitalik.eth</p>`))
	}))
	defer srv.Close()

	b, err := newTestClient(0).GetBody(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>vitalik.eth</p>", string(b))
}
