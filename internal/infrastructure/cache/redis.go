package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache wraps Redis client for caching
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
	}, nil
}

// Set stores a value with expiration
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value
func (r *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}

	return value, nil
}

// GetString retrieves a string value
func (r *RedisCache) GetString(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

// Delete removes a key
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Exists checks if a key exists
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

// Incr increments a counter
func (r *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// Expire sets expiration on a key
func (r *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return r.client.Expire(ctx, key, expiration).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// PoolMirror projects a run's variable pool outputs into a Redis hash
// as the run progresses, so a dashboard can inspect an in-flight run's
// accumulated node outputs without holding a reference to the live
// VariablePool value.
type PoolMirror struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewPoolMirror creates a mirror that expires a run's hash after ttl of
// inactivity (0 disables expiry).
func NewPoolMirror(cache *RedisCache, ttl time.Duration) *PoolMirror {
	return &PoolMirror{cache: cache, ttl: ttl}
}

func mirrorKey(runID string) string {
	return "graphflow:run:" + runID + ":outputs"
}

// SetNodeOutputs records nodeID's outputs for runID.
func (m *PoolMirror) SetNodeOutputs(ctx context.Context, runID, nodeID string, outputs map[string]interface{}) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return err
	}
	key := mirrorKey(runID)
	if err := m.cache.client.HSet(ctx, key, nodeID, data).Err(); err != nil {
		return err
	}
	if m.ttl > 0 {
		return m.cache.client.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

// All returns every node's last recorded outputs for runID.
func (m *PoolMirror) All(ctx context.Context, runID string) (map[string]map[string]interface{}, error) {
	raw, err := m.cache.client.HGetAll(ctx, mirrorKey(runID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]interface{}, len(raw))
	for nodeID, data := range raw {
		var outputs map[string]interface{}
		if err := json.Unmarshal([]byte(data), &outputs); err != nil {
			return nil, err
		}
		out[nodeID] = outputs
	}
	return out, nil
}
