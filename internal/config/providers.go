package config

import (
	"fmt"
	"time"
)

// Provider names used as keys in the providers section
const (
	ProviderMoralis     = "moralis"
	ProviderDexScreener = "dexscreener"
)

// ProviderConfig represents configuration for a single upstream API
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`
	RPS          float64       `yaml:"rps"`            // Requests per second
	Burst        int           `yaml:"burst"`          // Burst capacity
	TimeoutMS    int           `yaml:"timeout_ms"`     // Per-request timeout
	MaxRetries   int           `yaml:"max_retries"`    // Retries on 429/5xx and transport errors
	CacheTTLSecs int           `yaml:"cache_ttl_secs"` // Response cache TTL, 0 disables caching
	BackoffMS    BackoffConfig `yaml:"backoff_ms"`
	Circuit      CircuitConfig `yaml:"circuit"`
	Budget       BudgetConfig  `yaml:"budget"`
}

// BackoffConfig represents exponential backoff configuration
type BackoffConfig struct {
	Base   int  `yaml:"base"`   // Base backoff in milliseconds
	Max    int  `yaml:"max"`    // Maximum backoff in milliseconds
	Jitter bool `yaml:"jitter"` // Randomize each delay
}

// BudgetConfig caps upstream calls per calendar window. Zero means unlimited.
type BudgetConfig struct {
	Hourly  int `yaml:"hourly"`
	Daily   int `yaml:"daily"`
	Monthly int `yaml:"monthly"`
}

// CircuitConfig represents circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // Consecutive failures to open circuit
	HalfOpenRequests int `yaml:"half_open_requests"`
	OpenTimeoutMS    int `yaml:"open_timeout_ms"` // Time spent open before probing
	IntervalMS       int `yaml:"interval_ms"`     // Counter reset period while closed
}

// DefaultProviders returns the production endpoints and budgets
func DefaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		ProviderMoralis: {
			BaseURL:      "https://solana-gateway.moralis.io",
			RPS:          5,
			Burst:        10,
			TimeoutMS:    10000,
			MaxRetries:   2,
			CacheTTLSecs: 30,
			BackoffMS:    BackoffConfig{Base: 250, Max: 4000, Jitter: true},
			Circuit:      CircuitConfig{FailureThreshold: 5, HalfOpenRequests: 1, OpenTimeoutMS: 30000, IntervalMS: 60000},
		},
		ProviderDexScreener: {
			BaseURL:      "https://api.dexscreener.com",
			RPS:          4,
			Burst:        8,
			TimeoutMS:    8000,
			MaxRetries:   2,
			CacheTTLSecs: 30,
			BackoffMS:    BackoffConfig{Base: 250, Max: 4000, Jitter: true},
			Circuit:      CircuitConfig{FailureThreshold: 5, HalfOpenRequests: 1, OpenTimeoutMS: 30000, IntervalMS: 60000},
		},
	}
}

// Validate ensures a provider configuration is valid
func (p *ProviderConfig) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %g", p.RPS)
	}
	if float64(p.Burst) < p.RPS {
		return fmt.Errorf("burst (%d) must be >= rps (%g)", p.Burst, p.RPS)
	}
	if p.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", p.TimeoutMS)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", p.MaxRetries)
	}
	if p.CacheTTLSecs < 0 {
		return fmt.Errorf("cache_ttl_secs cannot be negative, got %d", p.CacheTTLSecs)
	}

	if err := p.BackoffMS.Validate(); err != nil {
		return fmt.Errorf("backoff_ms: %w", err)
	}
	if err := p.Circuit.Validate(); err != nil {
		return fmt.Errorf("circuit: %w", err)
	}
	if p.Budget.Hourly < 0 || p.Budget.Daily < 0 || p.Budget.Monthly < 0 {
		return fmt.Errorf("budget limits cannot be negative")
	}
	return nil
}

// Validate ensures backoff configuration is valid
func (b *BackoffConfig) Validate() error {
	if b.Base <= 0 {
		return fmt.Errorf("base must be positive, got %d", b.Base)
	}
	if b.Max <= b.Base {
		return fmt.Errorf("max (%d) must be > base (%d)", b.Max, b.Base)
	}
	return nil
}

// Validate ensures circuit breaker configuration is valid
func (c *CircuitConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.HalfOpenRequests <= 0 {
		return fmt.Errorf("half_open_requests must be positive, got %d", c.HalfOpenRequests)
	}
	if c.OpenTimeoutMS <= 0 {
		return fmt.Errorf("open_timeout_ms must be positive, got %d", c.OpenTimeoutMS)
	}
	return nil
}

// GetCacheTTL returns the cache TTL as a time.Duration
func (p *ProviderConfig) GetCacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSecs) * time.Second
}

// GetRequestTimeout returns the request timeout as a time.Duration
func (p *ProviderConfig) GetRequestTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// GetBaseBackoff returns the base backoff as a time.Duration
func (p *ProviderConfig) GetBaseBackoff() time.Duration {
	return time.Duration(p.BackoffMS.Base) * time.Millisecond
}

// GetMaxBackoff returns the maximum backoff as a time.Duration
func (p *ProviderConfig) GetMaxBackoff() time.Duration {
	return time.Duration(p.BackoffMS.Max) * time.Millisecond
}

// GetOpenTimeout returns how long a tripped breaker stays open
func (c *CircuitConfig) GetOpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMS) * time.Millisecond
}

// GetInterval returns the closed-state counter reset period
func (c *CircuitConfig) GetInterval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}
