package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed identifiers so the same inbound
// notification or event is never acted on twice. The database unique
// constraint is the final guard; this store is the fast path that keeps
// duplicate gateway callbacks from reaching it at all.
type IdempotencyStore interface {
	// MarkProcessed marks an identifier as processed with a TTL.
	// Returns true if it was newly marked, false if already processed.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an identifier has already been processed
	IsProcessed(ctx context.Context, id string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed identifier is remembered
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
