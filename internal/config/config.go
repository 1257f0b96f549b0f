package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fernet/fernet-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	PriceFreshness time.Duration `env:"PRICE_FRESHNESS" envDefault:"15m"`
	DPSOverrides   string        `env:"DPS_OVERRIDES"`
	TaxRateRaw     string        `env:"TAX_RATE" envDefault:"0.154"`
	Server         ServerConfig
	Database       DatabaseConfig
	CORS           CORSConfig
	Market         MarketConfig
	Cache          CacheConfig
	Redis          RedisConfig
	Jobs           JobsConfig

	// Overrides is DPSOverrides parsed by Load.
	Overrides map[string]decimal.Decimal
	// TaxRate is TaxRateRaw parsed by Load, a fraction in [0, 1).
	TaxRate decimal.Decimal
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"5001"`
	Host         string        `env:"SERVER_HOST" envDefault:"localhost"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	Addr         string        // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string `env:"DB_PATH" envDefault:"./data/dividend_tracker.db"`
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost"`
}

// Market data providers.
const (
	ProviderPolygon = "polygon"
	ProviderYahoo   = "yahoo"
)

// MarketConfig selects and configures the market data provider.
type MarketConfig struct {
	Provider            string        `env:"MARKET_PROVIDER" envDefault:"yahoo"`
	PolygonBaseURL      string        `env:"POLYGON_BASE_URL" envDefault:"https://api.polygon.io"`
	PolygonAPIKey       string        `env:"POLYGON_API_KEY"`
	PolygonKeyEncrypted string        `env:"POLYGON_API_KEY_ENCRYPTED"`
	EncryptionKey       string        `env:"ENCRYPTION_KEY"`
	YahooBaseURL        string        `env:"YAHOO_BASE_URL" envDefault:"https://query1.finance.yahoo.com"`
	Timeout             time.Duration `env:"MARKET_TIMEOUT" envDefault:"10s"`
	Debug               bool          `env:"MARKET_DEBUG" envDefault:"false"`
	Concurrency         int           `env:"MARKET_CONCURRENCY" envDefault:"4"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig selects the cache backend and its TTLs.
type CacheConfig struct {
	Backend     string        `env:"CACHE_BACKEND" envDefault:"memory"`
	ScheduleTTL time.Duration `env:"SCHEDULE_CACHE_TTL" envDefault:"6h"`
	ProfileTTL  time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"24h"`
	HistoryTTL  time.Duration `env:"HISTORY_CACHE_TTL" envDefault:"6h"`
}

// RedisConfig holds the Redis connection used by the redis cache backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_PREFIX" envDefault:"dividend-tracker:"`
}

// JobsConfig controls the background jobs.
type JobsConfig struct {
	Enabled      bool          `env:"JOBS_ENABLED" envDefault:"true"`
	SyncSpec     string        `env:"DIVIDEND_SYNC_CRON" envDefault:"0 3 * * *"`
	PriceSpec    string        `env:"PRICE_REFRESH_CRON" envDefault:"@every 15m"`
	SyncInterval time.Duration `env:"DIVIDEND_SYNC_INTERVAL" envDefault:"6h"`
	Timeout      time.Duration `env:"JOB_TIMEOUT" envDefault:"10m"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish derives computed fields and checks cross-field constraints.
func (c *Config) finish() error {
	c.Server.Addr = net.JoinHostPort(c.Server.Host, c.Server.Port)

	c.Market.Provider = strings.ToLower(strings.TrimSpace(c.Market.Provider))
	switch c.Market.Provider {
	case ProviderPolygon, ProviderYahoo:
	default:
		return fmt.Errorf("unknown MARKET_PROVIDER %q", c.Market.Provider)
	}

	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.Market.PolygonKeyEncrypted != "" {
		key, err := DecryptSecret(c.Market.PolygonKeyEncrypted, c.Market.EncryptionKey)
		if err != nil {
			return fmt.Errorf("POLYGON_API_KEY_ENCRYPTED: %w", err)
		}
		c.Market.PolygonAPIKey = key
	}
	if c.Market.Provider == ProviderPolygon && c.Market.PolygonAPIKey == "" {
		return errors.New("MARKET_PROVIDER=polygon requires POLYGON_API_KEY or POLYGON_API_KEY_ENCRYPTED")
	}

	overrides, err := ParseOverrides(c.DPSOverrides)
	if err != nil {
		return fmt.Errorf("DPS_OVERRIDES: %w", err)
	}
	c.Overrides = overrides

	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRateRaw))
	if err != nil || rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("TAX_RATE must be a fraction in [0, 1), got %q", c.TaxRateRaw)
	}
	c.TaxRate = rate

	return nil
}

// DecryptSecret decrypts a fernet token with the base64 key. Tokens never expire.
func DecryptSecret(token, key string) (string, error) {
	if key == "" {
		return "", errors.New("ENCRYPTION_KEY is not set")
	}
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return "", fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{k})
	if msg == nil {
		return "", errors.New("token does not decrypt with ENCRYPTION_KEY")
	}
	return string(msg), nil
}

// ParseOverrides parses "SYM=1.23,SYM2=0.5" into per-symbol trailing DPS values.
// Symbols are normalized; an empty string yields an empty map.
func ParseOverrides(raw string) (map[string]decimal.Decimal, error) {
	overrides := make(map[string]decimal.Decimal)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		symbol, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected SYMBOL=VALUE, got %q", pair)
		}
		if !validation.ValidSymbol(symbol) {
			return nil, fmt.Errorf("invalid symbol %q", symbol)
		}
		dps, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || dps.IsNegative() {
			return nil, fmt.Errorf("invalid dividend per share %q for %s", value, symbol)
		}
		overrides[validation.NormalizeSymbol(symbol)] = dps
	}

	return overrides, nil
}
