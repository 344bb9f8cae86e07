package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/statlens/statlens/internal/compression"
	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/utils"
)

// RedisCache stores framed, compressed JSON results in Redis.
// Every round trip goes through a circuit breaker so an unavailable Redis
// fails fast instead of stalling requests.
type RedisCache struct {
	client     *redis.Client
	ttl        time.Duration
	compressor compression.Compressor
	breaker    *gobreaker.CircuitBreaker
}

// DialRedis connects to Redis and verifies the connection
func DialRedis(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	// Parse URL or use plain address
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCache(client, cfg)
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, cfg config.CacheConfig) (*RedisCache, error) {
	algo, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}
	compressor, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = utils.DefaultAnalyticsTTL
	}

	return &RedisCache{
		client:     client,
		ttl:        ttl,
		compressor: compressor,
		breaker:    newBreaker(cfg.Breaker),
	}, nil
}

func newBreaker(cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Get retrieves a result. A missing key is a miss, not a failure.
func (c *RedisCache) Get(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, bool, error) {
	key := Key(datasetID, metric)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	data, _ := out.([]byte)
	if data == nil {
		return nil, false, nil
	}

	raw, err := compression.Unframe(data)
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	result, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// Set stores a result with the configured TTL
func (c *RedisCache) Set(ctx context.Context, result *models.AnalyticsResult) error {
	raw, err := encode(result)
	if err != nil {
		return err
	}
	framed, err := compression.Frame(c.compressor, raw)
	if err != nil {
		return err
	}

	key := Key(result.DatasetID, result.Metric)
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, framed, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateDataset deletes every key of a dataset. Keys are found with SCAN
// so Redis is never blocked by a KEYS call.
func (c *RedisCache) InvalidateDataset(ctx context.Context, datasetID string) error {
	pattern := DatasetPattern(datasetID)

	_, err := c.breaker.Execute(func() (interface{}, error) {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, utils.CacheScanCount).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return nil, err
				}
			}
			if next == 0 {
				return nil, nil
			}
			cursor = next
		}
	})
	if err != nil {
		return fmt.Errorf("redis invalidate %s: %w", pattern, err)
	}
	return nil
}

// BreakerState reports the circuit breaker state
func (c *RedisCache) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
