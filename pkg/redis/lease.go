package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaseStore is the key surface a Lease needs. *Client satisfies it.
type LeaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	// DeleteIfValue removes key only while it holds value, in one step.
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

// Lease is an exclusive SETNX key tagged with a random owner token. The key
// expires after its TTL even if the holder never releases it.
type Lease struct {
	store LeaseStore
	key   string
	owner string
}

// AcquireLease claims key for ttl. It returns a nil lease and no error when
// someone else holds the key.
func AcquireLease(ctx context.Context, store LeaseStore, key string, ttl time.Duration) (*Lease, error) {
	owner := uuid.NewString()
	ok, err := store.SetNX(ctx, key, owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{store: store, key: key, owner: owner}, nil
}

// Release deletes the key while it still carries this lease's token. An
// expired or taken-over key is left alone. Releasing twice is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.owner == "" {
		return nil
	}
	if _, err := l.store.DeleteIfValue(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}
