package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	garantieredis "github.com/maximegiguere1one/garantiepro-sub004/pkg/redis"
)

// Lock keeps maintenance cycles from overlapping across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RedisLock holds a lease on one key per environment. The TTL should exceed
// a cycle so a slow run keeps its claim.
type RedisLock struct {
	store garantieredis.LeaseStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	lease *garantieredis.Lease
}

func NewRedisLock(store garantieredis.LeaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for cron lock")
	case key == "":
		return nil, errors.New("cron lock key required")
	case ttl <= 0:
		return nil, errors.New("cron lock ttl must be positive")
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lease != nil {
		return false, nil
	}
	lease, err := garantieredis.AcquireLease(ctx, l.store, l.key, l.ttl)
	if err != nil || lease == nil {
		return false, err
	}
	l.lease = lease
	return true, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	lease := l.lease
	l.lease = nil
	l.mu.Unlock()
	return lease.Release(ctx)
}

// LocalLock only guards against overlap inside one process. It is the
// fallback when Redis is not configured.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
