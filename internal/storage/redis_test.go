package storage

import (
	"context"
	"strconv"
	"testing"

	"codegate/internal/codebank"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, "codebank.json", zerolog.Nop())
}

func TestRedisStore_LoadAbsentReturnsEmptyBank(t *testing.T) {
	store := newTestRedisStore(t)

	bank, rev, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Revision(""), rev)
	assert.Equal(t, codebank.New(), bank)
}

func TestRedisStore_PersistThenLoadRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	bank := codebank.New()
	require.Equal(t, codebank.OutcomeAdded, bank.Add("A1"))

	rev, err := store.Persist(ctx, bank, "")
	require.NoError(t, err)
	assert.Equal(t, Revision("1"), rev)

	loaded, loadedRev, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev, loadedRev)
	assert.Equal(t, []string{"A1"}, loaded.UnusedCodes)
	assert.Equal(t, []string{}, loaded.ExpiredCodes)
}

func TestRedisStore_PersistStaleRevisionConflicts(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	first := codebank.New()
	require.Equal(t, codebank.OutcomeAdded, first.Add("A1"))
	_, err := store.Persist(ctx, first, "")
	require.NoError(t, err)

	// A writer holding the pre-write (absent) revision must lose.
	second := codebank.New()
	require.Equal(t, codebank.OutcomeAdded, second.Add("B2"))
	_, err = store.Persist(ctx, second, "")
	assert.ErrorIs(t, err, ErrRevisionConflict)

	loaded, _, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, loaded.UnusedCodes)
}

func TestRedisStore_SequentialPersistsBumpRevision(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	bank, rev, err := store.Load(ctx)
	require.NoError(t, err)

	for i, code := range []string{"A1", "B2", "C3"} {
		require.Equal(t, codebank.OutcomeAdded, bank.Add(code))
		rev, err = store.Persist(ctx, bank, rev)
		require.NoError(t, err)
		assert.Equal(t, Revision(strconv.Itoa(i+1)), rev)
	}
}

func TestRedisStore_LoadUnparsableRecordFails(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	require.NoError(t, mr.Set("codebank.json", "{not json"))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "codebank.json", zerolog.Nop())

	_, _, err = store.Load(context.Background())
	assert.Error(t, err)
}
