package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens/internal/compression"
	"github.com/statlens/statlens/internal/config"
)

func newMockCache(t *testing.T, cfg config.CacheConfig) (*RedisCache, redismock.ClientMock) {
	t.Helper()

	client, mock := redismock.NewClientMock()
	c, err := NewRedisCache(client, cfg)
	require.NoError(t, err)
	return c, mock
}

func framedResult(t *testing.T, algo compression.Algorithm, datasetID, metric string) []byte {
	t.Helper()

	raw, err := json.Marshal(sampleResult(datasetID, metric))
	require.NoError(t, err)
	compressor, err := compression.GetCompressor(algo)
	require.NoError(t, err)
	framed, err := compression.Frame(compressor, raw)
	require.NoError(t, err)
	return framed
}

func TestRedisCache_Set(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{TTL: time.Hour})

	framed := framedResult(t, compression.Snappy, "ds-1", "revenue")
	mock.ExpectSet("analytics:ds-1:revenue", framed, time.Hour).SetVal("OK")

	require.NoError(t, c.Set(context.Background(), sampleResult("ds-1", "revenue")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetHit(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{})

	framed := framedResult(t, compression.Snappy, "ds-1", "revenue")
	mock.ExpectGet("analytics:ds-1:revenue").SetVal(string(framed))

	got, found, err := c.Get(context.Background(), "ds-1", "revenue")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "revenue", got.Metric)
	assert.Equal(t, 12.5, got.Summary.Mean)
	assert.Len(t, got.TimeSeriesData, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_ReadsUncompressedFrames(t *testing.T) {
	// A reader configured for snappy still decodes entries written without compression
	c, mock := newMockCache(t, config.CacheConfig{Compression: "snappy"})

	framed := framedResult(t, compression.None, "ds-1", "revenue")
	mock.ExpectGet("analytics:ds-1:revenue").SetVal(string(framed))

	got, found, err := c.Get(context.Background(), "ds-1", "revenue")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ds-1", got.DatasetID)
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{})

	mock.ExpectGet("analytics:ds-1:revenue").RedisNil()

	got, found, err := c.Get(context.Background(), "ds-1", "revenue")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}

func TestRedisCache_GetCorrupt(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{})

	mock.ExpectGet("analytics:ds-1:revenue").SetVal("\x07garbage")

	_, found, err := c.Get(context.Background(), "ds-1", "revenue")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestRedisCache_InvalidateDataset(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{})

	mock.ExpectScan(0, "analytics:ds-1:*", 100).SetVal([]string{"analytics:ds-1:revenue"}, 42)
	mock.ExpectDel("analytics:ds-1:revenue").SetVal(1)
	mock.ExpectScan(42, "analytics:ds-1:*", 100).SetVal([]string{"analytics:ds-1:cost"}, 0)
	mock.ExpectDel("analytics:ds-1:cost").SetVal(1)

	require.NoError(t, c.InvalidateDataset(context.Background(), "ds-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_InvalidateEmpty(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{})

	mock.ExpectScan(0, "analytics:ds-1:*", 100).SetVal([]string{}, 0)

	require.NoError(t, c.InvalidateDataset(context.Background(), "ds-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_BreakerOpens(t *testing.T) {
	c, mock := newMockCache(t, config.CacheConfig{
		Breaker: config.BreakerConfig{FailureThreshold: 2, Timeout: time.Minute},
	})

	down := errors.New("connection refused")
	mock.ExpectGet("analytics:ds-1:revenue").SetErr(down)
	mock.ExpectGet("analytics:ds-1:revenue").SetErr(down)

	for i := 0; i < 2; i++ {
		_, _, err := c.Get(context.Background(), "ds-1", "revenue")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	// Open breaker short-circuits without touching Redis
	_, _, err := c.Get(context.Background(), "ds-1", "revenue")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisCache_BadCompression(t *testing.T) {
	client, _ := redismock.NewClientMock()
	_, err := NewRedisCache(client, config.CacheConfig{Compression: "lz4"})
	assert.Error(t, err)
}
