// Package providers holds the REST clients for the upstream market data APIs.
// Every call goes through the response cache, the call budget, the
// per-provider rate limiter, the circuit breaker and the pooled HTTP client,
// in that order.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/data/cache"
	"github.com/sawpanic/aftershock/internal/infrastructure/httpclient"
	"github.com/sawpanic/aftershock/internal/net/ratelimit"
)

const maxBodyBytes = 16 << 20

// HTTPError is returned for any non-2xx upstream response
type HTTPError struct {
	Provider   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Request failed with status %d", e.StatusCode)
}

// Observer receives request and cache outcomes for metrics
type Observer interface {
	ObserveProviderRequest(provider string, duration time.Duration, err error)
	ObserveCache(provider string, hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveProviderRequest(string, time.Duration, error) {}
func (nopObserver) ObserveCache(string, bool)                          {}

// Options carries the shared collaborators of every provider client.
// Nil fields disable the corresponding stage.
type Options struct {
	Cache    cache.Cache
	Budget   *BudgetGuard
	Limiter  *ratelimit.Manager
	Breakers *CircuitBreakerManager
	Observer Observer
}

type restClient struct {
	name    string
	baseURL string
	host    string
	headers http.Header
	ttl     time.Duration
	pool    *httpclient.ClientPool
	opts    Options
}

func newRESTClient(name string, cfg config.ProviderConfig, headers http.Header, opts Options) *restClient {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	host := baseURL
	if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return &restClient{
		name:    name,
		baseURL: baseURL,
		host:    host,
		headers: headers,
		ttl:     cfg.GetCacheTTL(),
		pool:    httpclient.NewClientPool(httpclient.ConfigFromProvider(name, cfg)),
		opts:    opts,
	}
}

// getJSON fetches baseURL+path and returns the raw JSON body
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	key := c.name + ":" + endpoint

	if c.opts.Cache != nil && c.ttl > 0 {
		data, found, err := c.opts.Cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("provider", c.name).Msg("Cache read failed")
		case found:
			c.opts.Observer.ObserveCache(c.name, true)
			return data, nil
		default:
			c.opts.Observer.ObserveCache(c.name, false)
		}
	}

	if c.opts.Budget != nil {
		if err := c.opts.Budget.CheckAndConsume(c.name, 1); err != nil {
			c.opts.Observer.ObserveProviderRequest(c.name, 0, err)
			log.Warn().Err(err).Str("provider", c.name).Msg("Provider budget exhausted")
			return nil, err
		}
	}

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx, c.name, c.host); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	body, err := c.execute(ctx, endpoint)
	duration := time.Since(start)
	c.opts.Observer.ObserveProviderRequest(c.name, duration, err)

	if err != nil {
		event := log.Error().Err(err).Str("provider", c.name).Str("url", endpoint)
		if httpErr, ok := err.(*HTTPError); ok {
			event = event.Int("status", httpErr.StatusCode)
		}
		event.Msg("Provider request failed")
		return nil, err
	}

	log.Debug().
		Str("provider", c.name).
		Str("url", endpoint).
		Dur("duration", duration).
		Int("bytes", len(body)).
		Msg("Provider request completed")

	if c.opts.Cache != nil && c.ttl > 0 {
		if err := c.opts.Cache.Set(ctx, key, body, c.ttl); err != nil {
			log.Warn().Err(err).Str("provider", c.name).Msg("Cache write failed")
		}
	}
	return body, nil
}

func (c *restClient) execute(ctx context.Context, endpoint string) ([]byte, error) {
	call := func() (interface{}, error) {
		return c.fetch(ctx, endpoint)
	}

	var (
		result interface{}
		err    error
	)
	if c.opts.Breakers != nil {
		result, err = c.opts.Breakers.Execute(c.name, call)
	} else {
		result, err = call()
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *restClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.name, err)
	}
	for k, values := range c.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.pool.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &HTTPError{Provider: c.name, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.name, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s returned invalid JSON", c.name)
	}
	return body, nil
}
