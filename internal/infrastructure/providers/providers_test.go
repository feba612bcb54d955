package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/data/cache"
	"github.com/sawpanic/aftershock/internal/net/ratelimit"
)

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:      baseURL,
		RPS:          100,
		Burst:        100,
		TimeoutMS:    2000,
		MaxRetries:   0,
		CacheTTLSecs: 60,
		BackoffMS:    config.BackoffConfig{Base: 1, Max: 2},
		Circuit:      config.CircuitConfig{FailureThreshold: 2, HalfOpenRequests: 1, OpenTimeoutMS: 60000},
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	requests map[string]int
	failures map[string]int
	hits     int
	misses   int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{requests: map[string]int{}, failures: map[string]int{}}
}

func (o *recordingObserver) ObserveProviderRequest(provider string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests[provider]++
	if err != nil {
		o.failures[provider]++
	}
}

func (o *recordingObserver) ObserveCache(_ string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func TestMoralisClient_Endpoints(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		mu.Lock()
		seen = append(seen, r.URL.RequestURI())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewMoralisClient(testProviderConfig(server.URL), "test-key", Options{})
	ctx := context.Background()

	_, err := client.TokenPrice(ctx, "Token111")
	require.NoError(t, err)
	_, err = client.TokenHolders(ctx, "Token111")
	require.NoError(t, err)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	body, err := client.PairOHLCV(ctx, "Pair222", "10min", from, to)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	assert.Equal(t, []string{
		"/token/mainnet/Token111/price",
		"/token/mainnet/holders/Token111",
		"/token/mainnet/pairs/Pair222/ohlcv?currency=usd&fromDate=2025-01-01T00%3A00%3A00Z&timeframe=10min&toDate=2025-02-01T00%3A00%3A00Z",
	}, seen)
}

func TestDexScreenerClient_TokenPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/v1/solana/Token111", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`[{"pairAddress":"Pair222","liquidity":{"usd":60000}}]`))
	}))
	defer server.Close()

	client := NewDexScreenerClient(testProviderConfig(server.URL+"/"), Options{})
	body, err := client.TokenPairs(context.Background(), "Token111")
	require.NoError(t, err)
	assert.Contains(t, string(body), "Pair222")
}

func TestRESTClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewDexScreenerClient(testProviderConfig(server.URL), Options{})
	_, err := client.TokenPairs(context.Background(), "missing")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "Request failed with status 404", err.Error())
}

func TestRESTClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	client := NewDexScreenerClient(testProviderConfig(server.URL), Options{})
	_, err := client.TokenPairs(context.Background(), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestRESTClient_CachesResponses(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"usdPrice":1.5,"pairAddress":"Pair222"}`))
	}))
	defer server.Close()

	store := cache.NewTTLCache(16)
	defer store.Close()
	observer := newRecordingObserver()

	client := NewMoralisClient(testProviderConfig(server.URL), "k", Options{Cache: store, Observer: observer})
	ctx := context.Background()

	first, err := client.TokenPrice(ctx, "Token111")
	require.NoError(t, err)
	second, err := client.TokenPrice(ctx, "Token111")
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
	assert.Equal(t, 1, observer.requests[config.ProviderMoralis])
}

func TestRESTClient_FailuresAreNotCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := cache.NewTTLCache(16)
	defer store.Close()

	client := NewMoralisClient(testProviderConfig(server.URL), "k", Options{Cache: store})
	_, err := client.TokenHolders(context.Background(), "Token111")
	require.Error(t, err)
	_, err = client.TokenHolders(context.Background(), "Token111")
	require.Error(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRESTClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testProviderConfig(server.URL)
	breakers := NewCircuitBreakerManagerFromConfig(map[string]config.ProviderConfig{config.ProviderDexScreener: cfg})
	client := NewDexScreenerClient(cfg, Options{Breakers: breakers})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.TokenPairs(ctx, "token")
		require.Error(t, err)
	}
	assert.Equal(t, "open", breakers.States()[config.ProviderDexScreener])

	_, err := client.TokenPairs(ctx, "token")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open breaker short-circuits the request")
}

func TestRESTClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testProviderConfig(server.URL)
	breakers := NewCircuitBreakerManagerFromConfig(map[string]config.ProviderConfig{config.ProviderMoralis: cfg})
	client := NewMoralisClient(cfg, "k", Options{Breakers: breakers})

	for i := 0; i < 5; i++ {
		_, err := client.TokenPrice(context.Background(), "bad")
		require.Error(t, err)
	}
	assert.Equal(t, "closed", breakers.States()[config.ProviderMoralis])
}

func TestRESTClient_RateLimiterHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	limiter := ratelimit.NewManager()
	limiter.AddProvider(config.ProviderDexScreener, 0.01, 1)
	client := NewDexScreenerClient(testProviderConfig(server.URL), Options{Limiter: limiter})

	_, err := client.TokenPairs(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.TokenPairs(ctx, "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait for dexscreener")
}

func TestCircuitBreakerManager(t *testing.T) {
	cbm := NewCircuitBreakerManagerFromConfig(config.DefaultProviders())

	assert.Equal(t, []string{config.ProviderDexScreener, config.ProviderMoralis}, cbm.Providers())
	assert.Nil(t, cbm.GetStatus("unknown"))

	_, err := cbm.Execute("unknown", func() (interface{}, error) { return nil, nil })
	require.Error(t, err)

	result, err := cbm.Execute(config.ProviderMoralis, func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	status := cbm.GetStatus(config.ProviderMoralis)
	require.NotNil(t, status)
	assert.Equal(t, "closed", status.State)
	assert.Equal(t, uint32(1), status.Counts.TotalSuccesses)
}

func TestCountsAsSuccess(t *testing.T) {
	assert.True(t, countsAsSuccess(nil))
	assert.True(t, countsAsSuccess(&HTTPError{StatusCode: 404}))
	assert.False(t, countsAsSuccess(&HTTPError{StatusCode: 429}))
	assert.False(t, countsAsSuccess(&HTTPError{StatusCode: 503}))
	assert.False(t, countsAsSuccess(errors.New("connection refused")))
}
