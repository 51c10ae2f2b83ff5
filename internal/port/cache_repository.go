package port

import "context"

// Locker serialises work on one key across requests and processes.
type Locker interface {
	// Acquire blocks until key is held or ctx is done; release is safe to call once
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency forgets a key so a failed request can be retried
	ClearIdempotency(ctx context.Context, key string) error
}
