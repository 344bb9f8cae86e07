package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the HTTP server
	ShutdownTimeout = 10 * time.Second

	// EventPublishTimeout bounds publishing of a single event
	EventPublishTimeout = 5 * time.Second

	// CacheOpTimeout bounds a single cache round trip
	CacheOpTimeout = 2 * time.Second
)

// =============================================================================
// Cache Constants
// =============================================================================

const (
	// DefaultAnalyticsTTL is how long an analytics result stays cached
	DefaultAnalyticsTTL = 2 * time.Hour

	// CacheCleanupInterval is how often expired in-memory entries are swept
	CacheCleanupInterval = time.Minute

	// CacheScanCount is the SCAN page size used when invalidating by pattern
	CacheScanCount = 100
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (default)
	QueueTypeMemory QueueType = "memory"
)
