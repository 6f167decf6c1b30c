// Package config loads immutable, process-wide configuration once at start.
// Precedence: built-in defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration. It is wired once at startup
// and passed explicitly; nothing reads the environment after Load returns.
type Config struct {
	// Server
	Host                    string        `yaml:"host"`
	Port                    int           `yaml:"port"`
	RequestTimeout          time.Duration `yaml:"request_timeout"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// Persistence
	DatabaseURL     string        `yaml:"database_url"`
	DBMaxOpenConns  int           `yaml:"db_max_open_conns"`
	DBMaxIdleConns  int           `yaml:"db_max_idle_conns"`
	DBConnMaxLife   time.Duration `yaml:"db_conn_max_lifetime"`
	DBQueryTimeout  time.Duration `yaml:"db_query_timeout"`
	VelocityTimeout time.Duration `yaml:"velocity_query_timeout"`

	// Redis
	RedisURL string `yaml:"redis_url"`

	// Security
	APIKeySalt   string        `yaml:"api_key_salt"`
	JWTSecret    string        `yaml:"jwt_secret"` // used by external auth flows only
	AuthCacheTTL time.Duration `yaml:"auth_cache_ttl"`

	// Rate limiting
	RateLimitPerMinute   int `yaml:"rate_limit_per_minute"`
	IPRateLimitPerMinute int `yaml:"ip_rate_limit_per_minute"`

	// Cache
	CacheL1MaxSize       int           `yaml:"cache_l1_max_size"`
	CacheVelocityTTL     time.Duration `yaml:"cache_velocity_ttl"`
	CacheIPHistoryTTL    time.Duration `yaml:"cache_ip_history_ttl"`
	CacheCustomerHistTTL time.Duration `yaml:"cache_customer_history_ttl"`

	// Model
	ModelPath         string        `yaml:"ml_model_path"`
	PredictionTimeout time.Duration `yaml:"ml_prediction_timeout"`
	FraudScoreLow     float64       `yaml:"fraud_score_low_threshold"`
	FraudScoreMedium  float64       `yaml:"fraud_score_medium_threshold"`
	FraudScoreHigh    float64       `yaml:"fraud_score_high_threshold"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Host:                    "0.0.0.0",
		Port:                    3000,
		RequestTimeout:          30 * time.Second,
		GracefulShutdownTimeout: 30 * time.Second,

		DBMaxOpenConns:  20,
		DBMaxIdleConns:  10,
		DBConnMaxLife:   time.Hour,
		DBQueryTimeout:  30 * time.Second,
		VelocityTimeout: 50 * time.Millisecond,

		RedisURL: "redis://localhost:6379/0",

		AuthCacheTTL: 5 * time.Second,

		RateLimitPerMinute:   100,
		IPRateLimitPerMinute: 50,

		CacheL1MaxSize:       2000,
		CacheVelocityTTL:     60 * time.Second,
		CacheIPHistoryTTL:    300 * time.Second,
		CacheCustomerHistTTL: 60 * time.Second,

		ModelPath:         "ml/models/fraud_model.json",
		PredictionTimeout: 5 * time.Second,
		FraudScoreLow:     0.30,
		FraudScoreMedium:  0.50,
		FraudScoreHigh:    0.80,
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.DatabaseURL, "DATABASE_URL")
	envString(&c.RedisURL, "REDIS_URL")
	envString(&c.APIKeySalt, "API_KEY_SALT")
	envString(&c.JWTSecret, "JWT_SECRET")
	envString(&c.ModelPath, "ML_MODEL_PATH")

	envInt(&c.Port, "PORT")
	envInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	envInt(&c.IPRateLimitPerMinute, "IP_RATE_LIMIT_PER_MINUTE")
	envInt(&c.CacheL1MaxSize, "CACHE_L1_MAX_SIZE")
	envInt(&c.DBMaxOpenConns, "DATABASE_POOL_SIZE")

	envSeconds(&c.CacheVelocityTTL, "CACHE_VELOCITY_TTL")
	envSeconds(&c.CacheIPHistoryTTL, "CACHE_IP_HISTORY_TTL")
	envSeconds(&c.CacheCustomerHistTTL, "CACHE_CUSTOMER_HISTORY_TTL")
	envSeconds(&c.RequestTimeout, "API_REQUEST_TIMEOUT")
	envSeconds(&c.GracefulShutdownTimeout, "API_GRACEFUL_SHUTDOWN_TIMEOUT")
	envSeconds(&c.PredictionTimeout, "ML_PREDICTION_TIMEOUT")

	envFloat(&c.FraudScoreLow, "FRAUD_SCORE_LOW_THRESHOLD")
	envFloat(&c.FraudScoreMedium, "FRAUD_SCORE_MEDIUM_THRESHOLD")
	envFloat(&c.FraudScoreHigh, "FRAUD_SCORE_HIGH_THRESHOLD")
}

// Validate rejects configurations that cannot serve requests safely.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.APIKeySalt == "" {
		return fmt.Errorf("config: API_KEY_SALT is required and must be non-empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10_000 {
		return fmt.Errorf("config: rate limit per minute must be 1-10000, got %d", c.RateLimitPerMinute)
	}
	if !(c.FraudScoreLow < c.FraudScoreMedium && c.FraudScoreMedium < c.FraudScoreHigh) {
		return fmt.Errorf("config: fraud score thresholds must be strictly increasing (%.2f, %.2f, %.2f)",
			c.FraudScoreLow, c.FraudScoreMedium, c.FraudScoreHigh)
	}
	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envSeconds(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
