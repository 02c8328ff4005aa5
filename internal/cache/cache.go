package cache

import (
	"context"
	"time"
)

// Cache defines the interface for the resolution cache: a time-bounded,
// derived accelerator mapping short code -> original URL. A miss is not an
// error; cache content is never authoritative for is_active or expires_at.
// This abstraction allows swapping implementations (Redis, in-memory).
type Cache interface {
	// Set stores a key-value pair with expiration
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Get retrieves a value by key; a miss returns ("", nil)
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key from cache (explicit invalidation)
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// Close closes the cache connection
	Close() error
}
