package httpclient

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

	"github.com/sawpanic/aftershock/internal/config"
)

func testPool(retries int) *ClientPool {
	return NewClientPool(ClientConfig{
		Name:           "test",
		MaxConcurrency: 2,
		RequestTimeout: time.Second,
		MaxRetries:     retries,
		BackoffBase:    time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
		UserAgent:      "aftershock-test",
	})
}

func TestClientPool_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aftershock-test", r.Header.Get("User-Agent"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pool := testPool(3)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := pool.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	stats := pool.GetStats()
	assert.Equal(t, int64(1), stats.SuccessRequests)
	assert.Equal(t, int64(2), stats.RetriedRequests)
}

func TestClientPool_ReturnsLastRetryableResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := testPool(1).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientPool_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := testPool(3).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientPool_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = testPool(3).Do(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCalculateBackoff(t *testing.T) {
	pool := NewClientPool(ClientConfig{BackoffBase: 100 * time.Millisecond, BackoffMax: 300 * time.Millisecond})

	assert.Equal(t, 100*time.Millisecond, pool.calculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, pool.calculateBackoff(2))
	assert.Equal(t, 300*time.Millisecond, pool.calculateBackoff(3))

	pool.config.Jitter = true
	jittered := pool.calculateBackoff(1)
	assert.GreaterOrEqual(t, jittered, 100*time.Millisecond)
	assert.LessOrEqual(t, jittered, 110*time.Millisecond)
}

func TestRetryClassification(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableError(errors.New("Client.Timeout exceeded")))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("unsupported protocol scheme")))
	assert.False(t, isRetryableError(nil))

	assert.True(t, isRetryableStatus(http.StatusBadGateway))
	assert.False(t, isRetryableStatus(http.StatusInternalServerError))
}

func TestConfigFromProvider(t *testing.T) {
	cfg := ConfigFromProvider(config.ProviderMoralis, config.DefaultProviders()[config.ProviderMoralis])

	assert.Equal(t, "moralis", cfg.Name)
	assert.Equal(t, 10, cfg.MaxConcurrency)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.True(t, cfg.Jitter)
}
