package fetch

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

	"github.com/maine/dou_bot/internal/retry"
)

func testConfig() Config {
	return Config{Timeout: 2 * time.Second, Retry: retry.Policy{Attempts: 3}}
}

func TestGet_DecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Language"), "pt-BR")
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte("<p>Minist\xe9rio</p>"))
	}))
	defer srv.Close()

	f := New(testConfig(), srv.Client(), nil)
	page, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>Ministério</p>", page.HTML)
	assert.Equal(t, srv.URL, page.URL)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	page, err := New(testConfig(), srv.Client(), nil).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", page.HTML)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGet_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(testConfig(), srv.Client(), nil).Get(context.Background(), srv.URL)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGet_TooManyRequestsIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(testConfig(), srv.Client(), nil).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGet_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := New(testConfig(), srv.Client(), nil).Get(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.URL)
}

func TestStatusError_Temporary(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 408}).Temporary())
	assert.True(t, (&StatusError{StatusCode: 503}).Temporary())
	assert.False(t, (&StatusError{StatusCode: 403}).Temporary())
}
