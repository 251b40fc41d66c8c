package service

import "context"

// IdempotencyStore remembers which order a client request key produced.
type IdempotencyStore interface {
	// Claim reserves key for this request. When the key is already taken, claimed is
	// false and orderID holds the stored order id, or is empty while the first
	// request is still running.
	Claim(ctx context.Context, key string) (orderID string, claimed bool, err error)
	// Complete records the order produced for a claimed key.
	Complete(ctx context.Context, key, orderID string) error
	// Abandon frees a claimed key after a failed request so it can be retried.
	Abandon(ctx context.Context, key string) error
}
