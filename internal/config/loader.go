package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")             // Current directory
		v.AddConfigPath("./configs")     // Project configs directory
		v.AddConfigPath("./config")      // Alternative config directory
		v.AddConfigPath("/etc/statlens") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides, e.g. STATLENS_CACHE_TYPE
	v.SetEnvPrefix("STATLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)

	// Store defaults
	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.seed_file", "")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_open_conns", d.Store.Postgres.MaxOpenConns)
	v.SetDefault("store.postgres.max_idle_conns", d.Store.Postgres.MaxIdleConns)
	v.SetDefault("store.postgres.conn_max_lifetime", d.Store.Postgres.ConnMaxLifetime)
	v.SetDefault("store.postgres.query_timeout", d.Store.Postgres.QueryTimeout)
	v.SetDefault("store.postgres.auto_migrate", d.Store.Postgres.AutoMigrate)

	// Cache defaults
	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.url", d.Cache.URL)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.compression", d.Cache.Compression)
	v.SetDefault("cache.breaker.max_requests", d.Cache.Breaker.MaxRequests)
	v.SetDefault("cache.breaker.interval", d.Cache.Breaker.Interval)
	v.SetDefault("cache.breaker.timeout", d.Cache.Breaker.Timeout)
	v.SetDefault("cache.breaker.failure_threshold", d.Cache.Breaker.FailureThreshold)

	// Queue defaults
	v.SetDefault("queue.enabled", d.Queue.Enabled)
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.username", "")
	v.SetDefault("queue.password", "")

	// Archive defaults
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.dir", d.Archive.Dir)
	v.SetDefault("archive.s3.prefix", d.Archive.S3.Prefix)

	// Registered so that secrets can come from the environment alone
	for _, key := range []string{"bucket", "region", "endpoint", "access_key_id", "secret_access_key"} {
		v.SetDefault("archive.s3."+key, "")
	}
	v.SetDefault("archive.s3.use_path_style", false)

	// Analytics defaults
	v.SetDefault("analytics.zscore_threshold", d.Analytics.ZScoreThreshold)
	v.SetDefault("analytics.zscore_min_points", d.Analytics.ZScoreMinPoints)
	v.SetDefault("analytics.iqr_min_points", d.Analytics.IQRMinPoints)
	v.SetDefault("analytics.iqr_multiplier", d.Analytics.IQRMultiplier)
	v.SetDefault("analytics.iqr_extreme_multiplier", d.Analytics.IQRExtremeMultiplier)
	v.SetDefault("analytics.run_timeout", d.Analytics.RunTimeout)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("rate_limit.idle_ttl", d.RateLimit.IdleTTL)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5555,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BodyLimit:    8 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Store: StoreConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				QueryTimeout:    30 * time.Second,
				AutoMigrate:     true,
			},
		},
		Cache: CacheConfig{
			Type:        "memory",
			TTL:         2 * time.Hour,
			URL:         "localhost:6379",
			Compression: "snappy",
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Queue: QueueConfig{
			Enabled: false,
			Type:    "memory",
			URL:     "nats://localhost:4222",
		},
		Archive: ArchiveConfig{
			Type: "file",
			Dir:  "./data/reports",
			S3: S3Config{
				Prefix: "reports/",
			},
		},
		Analytics: AnalyticsConfig{
			ZScoreThreshold:      2.5,
			ZScoreMinPoints:      3,
			IQRMinPoints:         4,
			IQRMultiplier:        1.5,
			IQRExtremeMultiplier: 3,
			RunTimeout:           30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
			IdleTTL:           10 * time.Minute,
		},
	}
}
