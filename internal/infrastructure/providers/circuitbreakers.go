package providers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/aftershock/internal/config"
)

type CircuitBreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	configs  map[string]*CircuitBreakerConfig
	mutex    sync.RWMutex
}

type CircuitBreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

type BreakerStatus struct {
	Name                string           `json:"name"`
	State               string           `json:"state"`
	Counts              gobreaker.Counts `json:"counts"`
	ConsecutiveFailures uint32           `json:"consecutive_failures"`
}

// BreakerConfigFromProvider maps a provider's circuit section onto breaker settings
func BreakerConfigFromProvider(name string, p config.ProviderConfig) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                name,
		MaxRequests:         uint32(p.Circuit.HalfOpenRequests),
		Interval:            p.Circuit.GetInterval(),
		Timeout:             p.Circuit.GetOpenTimeout(),
		ConsecutiveFailures: uint32(p.Circuit.FailureThreshold),
	}
}

func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		configs:  make(map[string]*CircuitBreakerConfig),
	}
}

// NewCircuitBreakerManagerFromConfig creates one breaker per configured provider
func NewCircuitBreakerManagerFromConfig(providers map[string]config.ProviderConfig) *CircuitBreakerManager {
	cbm := NewCircuitBreakerManager()
	for name, p := range providers {
		cbm.InitializeProvider(name, BreakerConfigFromProvider(name, p))
	}
	return cbm
}

func (cbm *CircuitBreakerManager) InitializeProvider(name string, config *CircuitBreakerConfig) {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	cbm.configs[name] = config
	cbm.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:          config.Name,
		MaxRequests:   config.MaxRequests,
		Interval:      config.Interval,
		Timeout:       config.Timeout,
		ReadyToTrip:   createTripCondition(config),
		OnStateChange: logStateChange,
		IsSuccessful:  countsAsSuccess,
	})
}

// Execute runs fn through the provider's breaker. While the breaker is open
// fn is not called and gobreaker.ErrOpenState is returned.
func (cbm *CircuitBreakerManager) Execute(provider string, fn func() (interface{}, error)) (interface{}, error) {
	cbm.mutex.RLock()
	breaker, exists := cbm.breakers[provider]
	cbm.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("circuit breaker not found for provider: %s", provider)
	}
	return breaker.Execute(fn)
}

func (cbm *CircuitBreakerManager) GetStatus(provider string) *BreakerStatus {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	breaker, exists := cbm.breakers[provider]
	if !exists {
		return nil
	}

	counts := breaker.Counts()
	return &BreakerStatus{
		Name:                cbm.configs[provider].Name,
		State:               breaker.State().String(),
		Counts:              counts,
		ConsecutiveFailures: counts.ConsecutiveFailures,
	}
}

// States returns the current state name of every breaker
func (cbm *CircuitBreakerManager) States() map[string]string {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	states := make(map[string]string, len(cbm.breakers))
	for name, breaker := range cbm.breakers {
		states[name] = breaker.State().String()
	}
	return states
}

// Providers returns the registered provider names in sorted order
func (cbm *CircuitBreakerManager) Providers() []string {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	names := make([]string, 0, len(cbm.breakers))
	for name := range cbm.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func createTripCondition(config *CircuitBreakerConfig) func(counts gobreaker.Counts) bool {
	threshold := config.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= threshold
	}
}

// countsAsSuccess keeps caller mistakes (unknown token, bad pair) from
// tripping the breaker. Only throttling, server errors and transport
// failures count against the provider.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < http.StatusInternalServerError && httpErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

func logStateChange(name string, from, to gobreaker.State) {
	event := log.Info()
	if to == gobreaker.StateOpen {
		event = log.Warn()
	}
	event.
		Str("provider", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state changed")
}
