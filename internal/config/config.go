// Package config provides configuration management for ordervox.
// It loads settings from environment variables with the ORDERVOX_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the ordervox engine and its
// optional web surface.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Locale     LocaleConfig
	Business   BusinessConfig
	Dispatch   DispatchConfig
	Classifier ClassifierConfig
	Security   SecurityConfig
}

// ServerConfig contains HTTP server configuration for the analytics surface.
type ServerConfig struct {
	Port         int     // Server port (default: 6470)
	Host         string  // Server host (default: 127.0.0.1)
	RateLimitRPS float64 // Sustained requests per second (default: 20)
	RateBurst    int     // Maximum burst size (default: 40)
}

// StorageConfig contains key-value store configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: memory, sqlite, postgres (default: memory)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Postgres connection string (when engine is postgres)
}

// LocaleConfig contains language and rule-table configuration.
type LocaleConfig struct {
	DefaultLocale string // Locale used when the caller passes none (default: de-CH)
	RulesPath     string // Optional directory of YAML rule overrides (default: embedded rules only)
}

// BusinessConfig contains Swiss ordering business rules.
type BusinessConfig struct {
	VATRate           float64            // VAT applied to subtotal (default: 0.077)
	MinimumOrderCHF   float64            // Checkout rejected below this subtotal (default: 10.00)
	FreeShippingCHF   float64            // Delivery fee waived at or above this subtotal (default: 50.00)
	DefaultFeeCHF     float64            // Delivery fee for unconfigured zones (default: 5.00)
	ZoneFeesCHF       map[string]float64 // Per-zone delivery fees
	OpenHour          int                // First hour checkout is accepted, inclusive (default: 10)
	CloseHour         int                // First hour checkout is rejected again (default: 22)
	Timezone          string             // IANA timezone for business hours (default: Europe/Zurich)
}

// DispatchConfig contains dispatcher tuning.
type DispatchConfig struct {
	CacheTTL          time.Duration // Result cache validity window (default: 5m)
	CacheSize         int           // Maximum cached results (default: 256)
	TransactionTTL    time.Duration // Pending transaction purge window (default: 5m)
	QueueSize         int           // Priority queue capacity (default: 100)
	QueueWarnSize     int           // Queue-size monitor warning threshold (default: 50)
	BatchSize         int           // Commands per batch flush (default: 5)
	SweepInterval     time.Duration // Cache/transaction expiry sweep (default: 1s)
	MonitorInterval   time.Duration // Queue-size monitor tick (default: 5s)
	DrainInterval     time.Duration // Queued-command drain tick (default: 1s)
}

// ClassifierConfig contains interpretation tuning.
type ClassifierConfig struct {
	MinConfidence   float64       // Below this, interpret asks for clarification (default: 0.6)
	FuzzyPenalty    float64       // Multiplier on fuzzy-matched rule confidence (default: 0.6)
	SimilarityFloor float64       // Minimum similarity for the fuzzy fallback (default: 0.6)
	ContextTTL      time.Duration // Default context record lifetime (default: 1h)
	HistoryLimit    int           // Context records kept per session (default: 100)
	PredictionFloor float64       // Predictions below this are discarded (default: 0.7)
}

// SecurityConfig contains security settings for the web surface.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the ORDERVOX_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("ORDERVOX_PORT", 6470),
			Host:         getEnv("ORDERVOX_HOST", "127.0.0.1"),
			RateLimitRPS: getEnvFloat("ORDERVOX_RATE_LIMIT_RPS", 20),
			RateBurst:    getEnvInt("ORDERVOX_RATE_BURST", 40),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("ORDERVOX_STORAGE_ENGINE", "memory"),
			DataPath:      getEnv("ORDERVOX_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("ORDERVOX_POSTGRES_DSN", ""),
		},
		Locale: LocaleConfig{
			DefaultLocale: getEnv("ORDERVOX_DEFAULT_LOCALE", "de-CH"),
			RulesPath:     getEnv("ORDERVOX_RULES_PATH", ""),
		},
		Business: BusinessConfig{
			VATRate:         getEnvFloat("ORDERVOX_VAT_RATE", 0.077),
			MinimumOrderCHF: getEnvFloat("ORDERVOX_MINIMUM_ORDER_CHF", 10.00),
			FreeShippingCHF: getEnvFloat("ORDERVOX_FREE_SHIPPING_CHF", 50.00),
			DefaultFeeCHF:   getEnvFloat("ORDERVOX_DEFAULT_DELIVERY_FEE_CHF", 5.00),
			ZoneFeesCHF: map[string]float64{
				"zurich-city":   3.50,
				"zurich-region": 5.00,
				"winterthur":    6.50,
			},
			OpenHour:  getEnvInt("ORDERVOX_OPEN_HOUR", 10),
			CloseHour: getEnvInt("ORDERVOX_CLOSE_HOUR", 22),
			Timezone:  getEnv("ORDERVOX_TIMEZONE", "Europe/Zurich"),
		},
		Dispatch: DispatchConfig{
			CacheTTL:        getEnvDuration("ORDERVOX_CACHE_TTL", 5*time.Minute),
			CacheSize:       getEnvInt("ORDERVOX_CACHE_SIZE", 256),
			TransactionTTL:  getEnvDuration("ORDERVOX_TRANSACTION_TTL", 5*time.Minute),
			QueueSize:       getEnvInt("ORDERVOX_QUEUE_SIZE", 100),
			QueueWarnSize:   getEnvInt("ORDERVOX_QUEUE_WARN_SIZE", 50),
			BatchSize:       getEnvInt("ORDERVOX_BATCH_SIZE", 5),
			SweepInterval:   getEnvDuration("ORDERVOX_SWEEP_INTERVAL", time.Second),
			MonitorInterval: getEnvDuration("ORDERVOX_MONITOR_INTERVAL", 5*time.Second),
			DrainInterval:   getEnvDuration("ORDERVOX_DRAIN_INTERVAL", time.Second),
		},
		Classifier: ClassifierConfig{
			MinConfidence:   getEnvFloat("ORDERVOX_MIN_CONFIDENCE", 0.6),
			FuzzyPenalty:    getEnvFloat("ORDERVOX_FUZZY_PENALTY", 0.6),
			SimilarityFloor: getEnvFloat("ORDERVOX_SIMILARITY_FLOOR", 0.6),
			ContextTTL:      getEnvDuration("ORDERVOX_CONTEXT_TTL", time.Hour),
			HistoryLimit:    getEnvInt("ORDERVOX_CONTEXT_HISTORY_LIMIT", 100),
			PredictionFloor: getEnvFloat("ORDERVOX_PREDICTION_FLOOR", 0.7),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("ORDERVOX_SECURITY_MODE", "development"),
			APIToken:     getEnv("ORDERVOX_API_TOKEN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Business.OpenHour < 0 || c.Business.OpenHour > 23 {
		return fmt.Errorf("config: open hour %d out of range", c.Business.OpenHour)
	}
	if c.Business.CloseHour < 0 || c.Business.CloseHour > 24 {
		return fmt.Errorf("config: close hour %d out of range", c.Business.CloseHour)
	}
	if c.Business.VATRate < 0 || c.Business.VATRate >= 1 {
		return fmt.Errorf("config: VAT rate %f out of range", c.Business.VATRate)
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return fmt.Errorf("config: minimum confidence %f out of range", c.Classifier.MinConfidence)
	}
	if c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("config: queue size must be positive, got %d", c.Dispatch.QueueSize)
	}
	if c.Dispatch.BatchSize <= 0 {
		return fmt.Errorf("config: batch size must be positive, got %d", c.Dispatch.BatchSize)
	}
	if c.Classifier.HistoryLimit <= 0 {
		return fmt.Errorf("config: context history limit must be positive, got %d", c.Classifier.HistoryLimit)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "90s") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
