package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address for server (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // Max request body in bytes
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// StoreConfig selects where datasets, records and analytics results live
type StoreConfig struct {
	Type     string         `mapstructure:"type"`      // memory (default), postgres
	SeedFile string         `mapstructure:"seed_file"` // JSON file loaded into the memory store on start
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds database connection configuration
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"` // Create tables on start
}

// CacheConfig represents analytics result cache configuration
type CacheConfig struct {
	Type        string        `mapstructure:"type"`        // memory (default), redis, none
	TTL         time.Duration `mapstructure:"ttl"`         // Lifetime of cached results (default: 2h)
	URL         string        `mapstructure:"url"`         // Redis address, e.g. localhost:6379
	Password    string        `mapstructure:"password"`    // Optional authentication
	DB          int           `mapstructure:"db"`          // Redis database number
	Compression string        `mapstructure:"compression"` // snappy (default), none
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker around cache calls
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`      // Requests let through while half-open
	Interval         time.Duration `mapstructure:"interval"`          // Period after which closed-state counts reset
	Timeout          time.Duration `mapstructure:"timeout"`           // Time spent open before probing again
	FailureThreshold uint32        `mapstructure:"failure_threshold"` // Consecutive failures that trip the breaker
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Publish and consume events
	Type     string `mapstructure:"type"`     // Queue type: nats, redis, kafka, memory (default)
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "statlens")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "statlens-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// ArchiveConfig selects where generated reports are kept
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // file (default), s3
	Dir  string   `mapstructure:"dir"`  // Directory of the file archive
	S3   S3Config `mapstructure:"s3"`
}

// S3Config represents S3 report archive configuration
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // Custom endpoint for S3-compatible stores
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// AnalyticsConfig holds detector tunables
type AnalyticsConfig struct {
	ZScoreThreshold      float64       `mapstructure:"zscore_threshold"`
	ZScoreMinPoints      int           `mapstructure:"zscore_min_points"`
	IQRMinPoints         int           `mapstructure:"iqr_min_points"`
	IQRMultiplier        float64       `mapstructure:"iqr_multiplier"`
	IQRExtremeMultiplier float64       `mapstructure:"iqr_extreme_multiplier"`
	RunTimeout           time.Duration `mapstructure:"run_timeout"` // Upper bound of one analytics run
}

// RateLimitConfig represents per-client rate limiting of expensive routes
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"` // Forget clients idle for this long
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive config: %w", err)
	}

	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

// Validate validates store configuration
func (c *StoreConfig) Validate() error {
	switch c.Type {
	case "", "memory":
		return nil
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
		if c.Postgres.QueryTimeout <= 0 {
			return fmt.Errorf("store.postgres.query_timeout must be positive")
		}
		return nil
	default:
		return fmt.Errorf("store.type must be 'memory' or 'postgres'")
	}
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "", "memory", "none":
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("cache.url is required for redis")
		}
	default:
		return fmt.Errorf("cache.type must be one of: memory, redis, none")
	}

	if c.Type != "none" && c.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Compression != "" && c.Compression != "snappy" && c.Compression != "none" {
		return fmt.Errorf("cache.compression must be 'snappy' or 'none'")
	}

	return nil
}

// Validate validates archive configuration
func (c *ArchiveConfig) Validate() error {
	switch c.Type {
	case "", "file":
		if c.Dir == "" {
			return fmt.Errorf("archive.dir is required")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("archive.s3.bucket is required")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("archive.s3.region is required")
		}
	default:
		return fmt.Errorf("archive.type must be 'file' or 's3'")
	}

	return nil
}

// Validate validates analytics configuration
func (c *AnalyticsConfig) Validate() error {
	if c.ZScoreThreshold <= 0 {
		return fmt.Errorf("analytics.zscore_threshold must be positive")
	}

	if c.ZScoreMinPoints < 1 || c.IQRMinPoints < 1 {
		return fmt.Errorf("analytics min points must be at least 1")
	}

	if c.IQRMultiplier <= 0 || c.IQRExtremeMultiplier < c.IQRMultiplier {
		return fmt.Errorf("analytics.iqr_extreme_multiplier must be at least iqr_multiplier, both positive")
	}

	if c.RunTimeout <= 0 {
		return fmt.Errorf("analytics.run_timeout must be positive")
	}

	return nil
}

// Validate validates rate limit configuration
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}

	if c.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1")
	}

	return nil
}
