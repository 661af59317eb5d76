package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	garantieredis "github.com/maximegiguere1one/garantiepro-sub004/pkg/redis"
)

const (
	defaultLockTTL = 5 * time.Minute
	lockScope      = "warranty-documents"
)

// Locker serializes generations of the same warranty.
type Locker interface {
	Lock(ctx context.Context, warrantyID uuid.UUID) (release func(context.Context) error, err error)
}

type lockStore interface {
	garantieredis.LeaseStore
	LockKey(scope, id string) string
}

// RedisLocker holds one lease per warranty while a batch runs.
type RedisLocker struct {
	store lockStore
	ttl   time.Duration
}

// NewRedisLocker returns a RedisLocker. ttl bounds how long a crashed batch
// keeps the warranty locked.
func NewRedisLocker(store lockStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for generation lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

// Lock claims the warranty or returns a CONFLICT error when another batch
// holds it.
func (l *RedisLocker) Lock(ctx context.Context, warrantyID uuid.UUID) (func(context.Context) error, error) {
	lease, err := garantieredis.AcquireLease(ctx, l.store, l.store.LockKey(lockScope, warrantyID.String()), l.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire generation lock")
	}
	if lease == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "documents of warranty %s are already being generated", warrantyID)
	}
	return lease.Release, nil
}
