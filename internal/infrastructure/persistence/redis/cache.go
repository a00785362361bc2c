// Package redis implements Redis caching and pub/sub for the peer-help hub.
//
// Key components:
//   - Cache: general-purpose caching with TTL management
//   - ProfileCache: hot profile reads in front of the postgres projection
//   - PubSub: adapter feeding the distributed event bus
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds the Redis connection settings.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password authenticates the connection; empty means no auth.
	Password string

	// DB selects the Redis logical database (0-15).
	DB int

	// PoolSize caps the number of socket connections.
	PoolSize int

	// MinIdleConns keeps this many connections warm.
	MinIdleConns int

	// MaxRetries bounds client-level command retries.
	MaxRetries int

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// ReadTimeout bounds socket reads.
	ReadTimeout time.Duration

	// WriteTimeout bounds socket writes.
	WriteTimeout time.Duration

	// PoolTimeout bounds waiting for a free connection.
	PoolTimeout time.Duration
}

// DefaultConfig returns the settings used when nothing is configured:
// localhost, a pool of 10, and single-digit-second timeouts.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// Addr renders the address as "host:port".
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the key is absent.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis cannot be reached.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when a value cannot be encoded or decoded.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheInvalidTTL is returned for a negative TTL.
	ErrCacheInvalidTTL = errors.New("cache: invalid TTL")

	// ErrCacheKeyEmpty is returned for an empty key.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrCacheNilValue is returned when asked to store nil.
	ErrCacheNilValue = errors.New("cache: value cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEY PREFIXES AND TTLs
// ══════════════════════════════════════════════════════════════════════════════

// Key prefixes namespace the shared Redis instance.
const (
	// PrefixProfile namespaces cached profiles.
	PrefixProfile = "profile:"

	// PrefixRequest namespaces cached help requests.
	PrefixRequest = "request:"

	// PrefixStats namespaces registry stats and worker cursors.
	PrefixStats = "stats:"

	// PrefixRateLimit namespaces rate-limit counters.
	PrefixRateLimit = "ratelimit:"

	// PrefixPubSub namespaces pub/sub channels.
	PrefixPubSub = "pubsub:"
)

// TTLs for the data each prefix holds.
const (
	// TTLProfileCache bounds staleness of cached profiles.
	TTLProfileCache = 10 * time.Minute

	// TTLStatsCache bounds staleness of the registry stats snapshot.
	TTLStatsCache = time.Minute

	// TTLRateLimitWindow is the default rate-limit window.
	TTLRateLimitWindow = 1 * time.Minute
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache wraps a Redis client with JSON serialization and key validation.
type Cache struct {
	client *redis.Client
	config Config
}

// NewCache connects to Redis and verifies the connection with a ping.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client, config: cfg}, nil
}

// Client exposes the underlying Redis client for operations the wrapper
// does not cover, such as pub/sub.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// BASIC OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Set JSON-encodes value and stores it under key. A zero TTL means no
// expiry; a negative one is rejected.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	switch {
	case key == "":
		return ErrCacheKeyEmpty
	case value == nil:
		return ErrCacheNilValue
	case ttl < 0:
		return ErrCacheInvalidTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get loads the value under key into dest. Returns ErrCacheMiss when the
// key is absent.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes the given keys. A no-op for an empty list.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Exists reports whether key is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}

	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Expire replaces the TTL on an existing key.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	if ttl < 0 {
		return ErrCacheInvalidTTL
	}
	return c.client.Expire(ctx, key, ttl).Err()
}

// DeleteByPattern removes every key matching the glob pattern, deleting in
// batches of 100 as the SCAN cursor advances.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return ErrCacheKeyEmpty
	}

	const batchSize = 100

	batch := make([]string, 0, batchSize)
	iter := c.client.Scan(ctx, 0, pattern, batchSize).Iterator()

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) < batchSize {
			continue
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		batch = batch[:0]
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Incr atomically increments the counter under key and returns the new value.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrCacheKeyEmpty
	}
	return c.client.Incr(ctx, key).Result()
}
