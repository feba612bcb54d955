package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/aftershock/internal/application/tokendata"
	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/data/cache"
	"github.com/sawpanic/aftershock/internal/infrastructure/providers"
	httpapi "github.com/sawpanic/aftershock/internal/interfaces/http"
	"github.com/sawpanic/aftershock/internal/net/ratelimit"
)

// appRuntime is the wired set of collaborators shared by the network commands
type appRuntime struct {
	cfg      *config.Config
	cache    cache.Cache
	breakers *providers.CircuitBreakerManager
	budgets  *providers.BudgetGuard
	metrics  *httpapi.MetricsRegistry
	service  *tokendata.Service
}

// loadConfig reads the config and applies the log level it selects
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	setupLogging(level)
	return cfg, nil
}

func loadRuntime() (*appRuntime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	metrics := httpapi.NewMetricsRegistry()
	breakers := providers.NewCircuitBreakerManagerFromConfig(cfg.Providers)
	budgets := providers.NewBudgetGuardFromConfig(cfg.Providers)
	opts := providers.Options{
		Cache:    store,
		Budget:   budgets,
		Limiter:  ratelimit.NewManagerFromConfig(cfg.Providers),
		Breakers: breakers,
		Observer: metrics,
	}

	log.Debug().
		Str("cache", cfg.Cache.Backend).
		Strs("timeframes", cfg.Timeframes).
		Bool("api_key", cfg.MoralisAPIKey != "").
		Msg("Runtime initialized")

	return &appRuntime{
		cfg:      cfg,
		cache:    store,
		breakers: breakers,
		budgets:  budgets,
		metrics:  metrics,
		service:  tokendata.NewFromConfig(cfg, opts, metrics),
	}, nil
}

func (rt *appRuntime) Close() {
	if err := rt.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close cache")
	}
}
