package ports

import (
	"context"
	"time"
)

// Store is the key-value cache contract used for access-token mirroring.
type Store interface {
	// SetCache writes value under key with the given expiry, replacing any prior value
	SetCache(ctx context.Context, key, value string, ttl time.Duration) error

	// GetCache returns the value and whether the key exists
	GetCache(ctx context.Context, key string) (string, bool, error)

	// GetTTL returns remaining seconds, -2 when key is absent, -1 when it never expires
	GetTTL(ctx context.Context, key string) (int64, error)

	// ClearCache deletes key and returns how many entries were removed
	ClearCache(ctx context.Context, key string) (int64, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error
}
