package filterkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute, 0)

	value := []byte("payload")
	require.NoError(t, m.Set(ctx, "k", value, time.Minute))

	// Mutating the caller's slice must not change the stored entry.
	value[0] = 'X'

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, m.Remove(ctx, "k"))
	require.NoError(t, m.Remove(ctx, "k"))

	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_TTLAndLazyEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute, 0)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 200*time.Millisecond))
	_, ok, _ := m.Get(ctx, "k")
	require.True(t, ok, "expected present before ttl")

	time.Sleep(300 * time.Millisecond)

	// Expired but not yet evicted: unreadable all the same.
	assert.Equal(t, 1, m.Len())
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok, "expected expired")
	assert.Equal(t, 0, m.Len(), "lookup should evict the expired entry")
}

func TestMemoryStore_Touch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute, 0)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 300*time.Millisecond))

	time.Sleep(200 * time.Millisecond)
	ok, err := m.Touch(ctx, "k", 300*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(200 * time.Millisecond)
	_, found, _ := m.Get(ctx, "k")
	assert.True(t, found, "touch should have extended the entry")

	ok, err = m.Touch(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_WithStore(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()

	store := NewStore(NewRedisStore(db), WithLogger(zap.NewNop().Sugar()))
	const key = "0123456789abcdef0123456789abcdef"
	store.newKey = func() (string, error) { return key, nil }

	criteria := NewCriteria("u1", Connections, WithSearch("2001:db8::1"))
	criteria.CreatedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(criteria)
	require.NoError(t, err)

	storageKey := storagePrefix + key

	mock.ExpectSet(storageKey, payload, DefaultIdleTimeout).SetVal("OK")
	got, err := store.Create(ctx, criteria)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	t.Run("owner reads and slides", func(t *testing.T) {
		mock.ExpectGet(storageKey).SetVal(string(payload))
		mock.ExpectPExpire(storageKey, DefaultIdleTimeout).SetVal(true)

		c, found, err := store.Get(ctx, key, "u1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "2001:db8::1", c.Search)
	})

	t.Run("foreign owner does not slide", func(t *testing.T) {
		mock.ExpectGet(storageKey).SetVal(string(payload))

		_, found, err := store.Get(ctx, key, "u2")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("extend", func(t *testing.T) {
		mock.ExpectGet(storageKey).SetVal(string(payload))
		mock.ExpectPExpire(storageKey, DefaultIdleTimeout).SetVal(true)

		ok, err := store.Extend(ctx, key, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("remove then miss", func(t *testing.T) {
		mock.ExpectDel(storageKey).SetVal(1)
		require.NoError(t, store.Remove(ctx, key))

		mock.ExpectGet(storageKey).RedisNil()
		_, found, err := store.Get(ctx, key, "u1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("redis failure propagates", func(t *testing.T) {
		mock.ExpectGet(storageKey).SetErr(errors.New("connection refused"))
		_, _, err := store.Get(ctx, key, "u1")
		assert.ErrorContains(t, err, "connection refused")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeys(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.True(t, ValidKey(key))

	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("0123456789ABCDEF0123456789ABCDEF"))
	assert.False(t, ValidKey("0123456789abcdef-0123456789abcde"))
}
