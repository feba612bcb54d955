package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

// DefaultPath is where Load looks when no path is given
const DefaultPath = "config/aftershock.yaml"

// Config is the complete service configuration
type Config struct {
	Server       ServerConfig              `yaml:"server"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Timeframes   []string                  `yaml:"timeframes"`
	LookbackDays int                       `yaml:"lookback_days"`
	Thresholds   ThresholdsConfig          `yaml:"thresholds"`
	Cache        CacheConfig               `yaml:"cache"`
	Watch        WatchConfig               `yaml:"watch"`
	LogLevel     string                    `yaml:"log_level"`

	// MoralisAPIKey only ever comes from the environment
	MoralisAPIKey string `yaml:"-"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

// ThresholdsConfig overrides the built-in gate minimums.
// Unset, negative or non-finite values keep the built-in default.
type ThresholdsConfig struct {
	MinLiquidity   *float64 `yaml:"min_liquidity"`
	MinVolume      *float64 `yaml:"min_volume"`
	MinPriceChange *float64 `yaml:"min_price_change"`
	MinHolders     *float64 `yaml:"min_holders"`
}

// CacheConfig selects the provider response cache backend
type CacheConfig struct {
	Backend       string `yaml:"backend"` // memory or redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MaxEntries    int    `yaml:"max_entries"`
}

// WatchConfig holds the default watchlist schedule
type WatchConfig struct {
	Schedule string   `yaml:"schedule"`
	Tokens   []string `yaml:"tokens"`
}

// Default returns a configuration that works without any file present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeoutMS:  15000,
			WriteTimeoutMS: 60000,
		},
		Providers:    DefaultProviders(),
		Timeframes:   []string{"10min", "30min", "1h"},
		LookbackDays: 30,
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 1024,
		},
		Watch: WatchConfig{
			Schedule: "@every 15m",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults, loads .env and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("AFTERSHOCK_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg.fillProviderDefaults()

	// .env is optional
	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillProviderDefaults restores providers a partial file left out
func (c *Config) fillProviderDefaults() {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for name, provider := range DefaultProviders() {
		if _, ok := c.Providers[name]; !ok {
			c.Providers[name] = provider
		}
	}
}

// ApplyEnv overlays environment variables read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.MoralisAPIKey = strings.TrimSpace(getenv("MORALIS_API_KEY"))
	if c.MoralisAPIKey == "" {
		c.MoralisAPIKey = strings.TrimSpace(getenv("VITE_MORALIS_API_KEY"))
	}

	if v := getenv("HTTP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.RedisAddr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate ensures the configuration is valid and consistent
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if len(c.Timeframes) != 3 {
		return fmt.Errorf("exactly 3 timeframes are required, got %d", len(c.Timeframes))
	}
	for i, tf := range c.Timeframes {
		if strings.TrimSpace(tf) == "" {
			return fmt.Errorf("timeframe %d cannot be empty", i)
		}
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive, got %d", c.LookbackDays)
	}

	switch c.Cache.Backend {
	case "memory", "":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	for name, provider := range c.Providers {
		if err := provider.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetReadTimeout returns the server read timeout
func (s ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// GetWriteTimeout returns the server write timeout
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// Lookback returns the OHLCV window length
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// EngineParams builds the engine tables with the configured threshold defaults
func (c *Config) EngineParams() aftershock.Params {
	params := aftershock.DefaultParams()
	params.Defaults = aftershock.ResolveThresholds(c.Thresholds.Overrides(), aftershock.DefaultThresholds())
	return params
}

// Overrides exposes the configured minimums to threshold resolution
func (t ThresholdsConfig) Overrides() aftershock.ThresholdOverrides {
	var out aftershock.ThresholdOverrides
	if t.MinLiquidity != nil {
		out.MinLiquidity = *t.MinLiquidity
	}
	if t.MinVolume != nil {
		out.MinVolume = *t.MinVolume
	}
	if t.MinPriceChange != nil {
		out.MinPriceChange = *t.MinPriceChange
	}
	if t.MinHolders != nil {
		out.MinHolders = *t.MinHolders
	}
	return out
}
