package transport

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

	"github.com/farmaciaslf/medisync/pkg/errors"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ping", req["message"])

		_ = json.NewEncoder(w).Encode(map[string]string{"message": "pong"})
	}))
	defer server.Close()

	client := New("test", &BearerAuth{}, WithSleep(noSleep))

	var resp map[string]string
	err := client.PostJSON(context.Background(), server.URL, map[string]string{"message": "ping"}, "secret", nil, &resp)
	require.NoError(t, err)
	assert.Equal(t, "pong", resp["message"])
}

func TestRateLimitRetriesSameRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	var slept []time.Duration
	client := New("test", &NoAuth{}, WithSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	var resp map[string]string
	err := client.PostJSON(context.Background(), server.URL, map[string]string{}, "", nil, &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])
}

func TestRateLimitDefaultWait(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	var slept []time.Duration
	client := New("test", &NoAuth{}, WithSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	err := client.PostJSON(context.Background(), server.URL, map[string]string{}, "", nil, nil)
	require.NoError(t, err)
	require.Len(t, slept, 1)
	assert.Equal(t, 2*time.Second, slept[0])
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New("test", &NoAuth{}, WithSleep(noSleep))
	err := client.PostJSON(context.Background(), server.URL, map[string]string{}, "", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "test", apiErr.Service)
}

func TestTransportErrorExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close() // connection refused from here on

	client := New("test", &NoAuth{}, WithSleep(noSleep), WithRetries(3))
	err := client.PostJSON(context.Background(), server.URL, map[string]string{}, "", nil, nil)
	require.Error(t, err)

	var apiErr *errors.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestHeaderAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-abc", r.Header.Get("X-Shopify-Access-Token"))
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := New("test", &HeaderAuth{Header: "X-Shopify-Access-Token"}, WithSleep(noSleep))
	err := client.PostJSON(context.Background(), server.URL, map[string]string{}, "token-abc", nil, nil)
	require.NoError(t, err)
}
