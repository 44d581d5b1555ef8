// Package persistence provides the blob storage abstraction used for
// workflows, asset history and per-feature settings.
package persistence

import "context"

// Persistence is an opaque key-value blob store. Values are JSON-serializable
// payloads; keys are slash-separated paths ("workflows/<id>",
// "assets/history"). The in-memory canvas is always the source of truth: a
// failed persistence call never corrupts it.
type Persistence interface {
	// Save stores the value under the key, overwriting any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Load returns the value stored under the key, or ErrKeyNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an absent key returns ErrKeyNotFound.
	Delete(ctx context.Context, key string) error

	// Keys lists every stored key with the given prefix, in no particular
	// order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
