package generation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
)

type memLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemLockStore() *memLockStore {
	return &memLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memLockStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memLockStore) LockKey(scope, id string) string {
	return "garantie:lock:" + scope + ":" + id
}

func TestRedisLockerSerializesOneWarranty(t *testing.T) {
	ctx := context.Background()
	store := newMemLockStore()
	locker, err := NewRedisLocker(store, 0)
	require.NoError(t, err)

	warrantyID := uuid.New()
	release, err := locker.Lock(ctx, warrantyID)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, store.ttls["garantie:lock:warranty-documents:"+warrantyID.String()])

	_, err = locker.Lock(ctx, warrantyID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	other, err := locker.Lock(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	release, err = locker.Lock(ctx, warrantyID)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
	// a second release of an already freed lock is a no-op
	require.NoError(t, release(ctx))
}

func TestRedisLockerKeepsForeignOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemLockStore()
	locker, err := NewRedisLocker(store, time.Minute)
	require.NoError(t, err)

	warrantyID := uuid.New()
	release, err := locker.Lock(ctx, warrantyID)
	require.NoError(t, err)

	key := store.LockKey(lockScope, warrantyID.String())
	store.values[key] = "someone-else"
	require.NoError(t, release(ctx))
	assert.Equal(t, "someone-else", store.values[key])
}
