package shared

import (
	"context"
	"time"
)

// ReplayStore remembers the outcome of requests carrying a client-supplied idempotency key,
// so a retried request returns the stored response instead of running twice.
type ReplayStore interface {
	// Reserve claims the key for ttl. It returns false when the key is already claimed,
	// either by a finished request or by one still in flight.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the serialized response for a reserved key.
	Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Lookup returns the stored response. found is false when the key is unknown;
	// payload is nil when the key is reserved but the request has not finished.
	Lookup(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Release drops a reservation so the request may be retried after a failure.
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key and its stored response are kept. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether keys are honored at all. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
