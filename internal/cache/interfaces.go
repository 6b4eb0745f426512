package cache

import (
	"context"
	"time"
)

// KeyValueStore is the capability surface the materialised views are built on.
// This abstraction allows swapping between memory (development/tests)
// and Redis (production) without changing business logic.
//
// Implementations return their transport errors unchanged.
type KeyValueStore interface {
	// Exists checks if a key of any kind exists.
	Exists(ctx context.Context, key string) (bool, error)

	// GetJSON decodes the document stored at key into dest. Returns ErrCacheMiss if not found.
	GetJSON(ctx context.Context, key string, dest any) error

	// SetJSON overwrites the document at key. A zero ttl keeps it until deleted.
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes keys of any kind. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// HMGet returns the hash fields in order; a nil entry means the field is absent.
	HMGet(ctx context.Context, key string, fields ...string) ([]*string, error)

	// HSet merges values into the hash at key.
	HSet(ctx context.Context, key string, values map[string]string) error

	// SMembers returns the members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Pipelined applies every write queued by fn as one atomic unit.
	Pipelined(ctx context.Context, fn func(b Batch) error) error
}

// Batch queues writes for Pipelined.
type Batch interface {
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
	HSet(key string, values map[string]string)
	Delete(keys ...string)
	// Expire sets a lifetime on an existing hash or set. Non-positive ttl is ignored.
	Expire(key string, ttl time.Duration)
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
