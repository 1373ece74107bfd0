package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/fencer/internal/recovery"
)

func TestRefreshOnExpiredSession(t *testing.T) {
	var refreshed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/fences":
			if r.Header.Get("Authorization") == "Bearer fresh-access" {
				w.Write([]byte(`{"fences":[]}`))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication session expired"}`))
		case "/api/auth/refresh":
			refreshed = true
			w.Write([]byte(`{"access_token":"fresh-access","refresh_token":"fresh-refresh"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetTokens("stale-access", "valid-refresh")

	fences, err := c.ListFences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fences)
	assert.True(t, refreshed)

	access, refresh := c.Tokens()
	assert.Equal(t, "fresh-access", access)
	assert.Equal(t, "fresh-refresh", refresh)
}

func TestRefreshFailureSurfacesServerWording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		if r.URL.Path == "/api/auth/refresh" {
			w.Write([]byte(`{"error":"token refresh failed"}`))
			return
		}
		w.Write([]byte(`{"error":"authentication session expired"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetTokens("stale-access", "revoked-refresh")

	_, err := c.ListFences(context.Background())
	require.Error(t, err)
	assert.Equal(t, "token refresh failed", err.Error())

	class := recovery.Classify(err.Error())
	assert.Equal(t, recovery.CategoryAuth, class.Category)
	assert.True(t, class.Retryable)
}

func TestExpiredSessionWithoutRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication session expired"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)

	_, err := c.ListFences(context.Background())
	require.Error(t, err)

	class := recovery.Classify(err.Error())
	assert.Equal(t, recovery.CategoryAuth, class.Category)
}

func TestServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetTokens("access", "refresh")

	_, err := c.ListFences(context.Background())
	require.Error(t, err)

	class := recovery.Classify(err.Error())
	assert.True(t, class.Retryable)
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens on the port anymore

	c := New(srv.URL, time.Second)
	c.SetTokens("access", "refresh")

	_, err := c.ListFences(context.Background())
	require.Error(t, err)

	class := recovery.Classify(err.Error())
	assert.Equal(t, recovery.CategoryNetwork, class.Category)
	assert.True(t, class.Retryable)
}

func TestLoginStoresTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		w.Write([]byte(`{
			"access_token": "a1",
			"refresh_token": "r1",
			"user": {"id": "u1", "email": "user@example.com"}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	user, err := c.Login(context.Background(), "user@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	access, refresh := c.Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)
}

func TestStatsBookkeeping(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"fences":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetTokens("access", "refresh")

	_, err := c.ListFences(context.Background())
	require.NoError(t, err)
	_, err = c.ListFences(context.Background())
	require.Error(t, err)

	stats := c.Stats()
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.5, stats.ErrorRate)
}
