// Package cache memoizes analytics results per (dataset, metric).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/models"
)

// AnalyticsCache stores analytics results for a limited time.
// Errors are advisory: callers treat a failed Get as a miss.
type AnalyticsCache interface {
	// Get returns the cached result and whether it was found
	Get(ctx context.Context, datasetID, metric string) (*models.AnalyticsResult, bool, error)

	// Set caches the result under its (dataset, metric) key
	Set(ctx context.Context, result *models.AnalyticsResult) error

	// InvalidateDataset drops every cached metric of a dataset
	InvalidateDataset(ctx context.Context, datasetID string) error

	// Close releases resources held by the cache
	Close() error
}

const keyPrefix = "analytics:"

// Key returns the cache key of a (dataset, metric) pair
func Key(datasetID, metric string) string {
	return keyPrefix + datasetID + ":" + metric
}

// DatasetPrefix returns the prefix shared by all keys of a dataset
func DatasetPrefix(datasetID string) string {
	return keyPrefix + datasetID + ":"
}

// DatasetPattern returns a glob matching all keys of a dataset.
// Glob metacharacters inside the dataset ID are escaped.
func DatasetPattern(datasetID string) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	for _, r := range datasetID {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString(":*")
	return b.String()
}

// New creates an AnalyticsCache based on configuration
func New(ctx context.Context, cfg config.CacheConfig) (AnalyticsCache, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryCache(cfg.TTL), nil
	case "redis":
		return DialRedis(ctx, cfg)
	case "none":
		return NopCache{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s (supported: memory, redis, none)", cfg.Type)
	}
}

func encode(result *models.AnalyticsResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analytics: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*models.AnalyticsResult, error) {
	var result models.AnalyticsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analytics: %w", err)
	}
	return &result, nil
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, string, string) (*models.AnalyticsResult, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, *models.AnalyticsResult) error { return nil }

func (NopCache) InvalidateDataset(context.Context, string) error { return nil }

func (NopCache) Close() error { return nil }
