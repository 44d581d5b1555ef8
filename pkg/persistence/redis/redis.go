// Package redis provides Redis-backed blob persistence.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every stored key so the engine can share a Redis
// instance with other applications.
const keyPrefix = "atelier:"

const connectTimeout = 5 * time.Second

// Persistence implements the persistence.Persistence interface on Redis.
// Values are stored as plain string blobs under a namespaced key.
type Persistence struct {
	client redis.UniversalClient
}

// NewPersistence connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func NewPersistence(ctx context.Context, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Persistence{client: client}, nil
}

// NewPersistenceWithClient wraps an existing client. Used by tests.
func NewPersistenceWithClient(client redis.UniversalClient) *Persistence {
	return &Persistence{client: client}
}

// Save stores the value under the namespaced key.
func (rp *Persistence) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return persistence.NewStoreError("Save", key, persistence.ErrInvalidKey)
	}

	err := rp.client.Set(ctx, keyPrefix+key, value, 0).Err()
	if err != nil {
		return persistence.NewStoreError("Save", key, err)
	}

	return nil
}

// Load returns the value stored under the key.
func (rp *Persistence) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, persistence.NewStoreError("Load", key, persistence.ErrInvalidKey)
	}

	value, err := rp.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewStoreError("Load", key, persistence.ErrKeyNotFound)
		}

		return nil, persistence.NewStoreError("Load", key, err)
	}

	return value, nil
}

// Delete removes the key.
func (rp *Persistence) Delete(ctx context.Context, key string) error {
	if key == "" {
		return persistence.NewStoreError("Delete", key, persistence.ErrInvalidKey)
	}

	removed, err := rp.client.Del(ctx, keyPrefix+key).Result()
	if err != nil {
		return persistence.NewStoreError("Delete", key, err)
	}

	if removed == 0 {
		return persistence.NewStoreError("Delete", key, persistence.ErrKeyNotFound)
	}

	return nil
}

// Keys lists stored keys with the given prefix using SCAN, so a large store
// never blocks the server the way KEYS would.
func (rp *Persistence) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)

	iter := rp.client.Scan(ctx, 0, keyPrefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(keyPrefix):])
	}

	err := iter.Err()
	if err != nil {
		return nil, persistence.NewStoreError("Keys", prefix, err)
	}

	return keys, nil
}

// HealthCheck pings the server.
func (rp *Persistence) HealthCheck(ctx context.Context) error {
	err := rp.client.Ping(ctx).Err()
	if err != nil {
		return persistence.NewStoreError("HealthCheck", "", err)
	}

	return nil
}

// Close closes the client connection.
func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}
