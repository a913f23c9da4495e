package snapshot

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, store Store, ns string) {
	ctx := context.Background()
	k := func(key string) string { return ns + key }

	t.Run("miss is not an error", func(t *testing.T) {
		v, found, err := store.Get(ctx, k("odds/pga-missing"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, k("odds/pga-a-2024-01-01-0800"), []byte(`{"v":1}`)))
		require.NoError(t, store.Set(ctx, k("odds/pga-a-2024-01-01-0800"), []byte(`{"v":2}`)))

		v, found, err := store.Get(ctx, k("odds/pga-a-2024-01-01-0800"))
		require.NoError(t, err)
		require.True(t, found)
		assert.JSONEq(t, `{"v":2}`, string(v))
	})

	t.Run("value bytes are kept verbatim", func(t *testing.T) {
		raw := []byte("{\"z\": 1,  \"a\": [ 2 ]}\n")
		require.NoError(t, store.Set(ctx, k("predictions/pga-raw"), raw))
		require.NoError(t, store.Set(ctx, k("matchups/pga-text"), []byte("not json")))

		v, found, err := store.Get(ctx, k("predictions/pga-raw"))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, raw, v)

		v, found, err = store.Get(ctx, k("matchups/pga-text"))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "not json", string(v))
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, k("odds/pga-a-2024-01-02-0800"), []byte(`{}`)))
		require.NoError(t, store.Set(ctx, k("odds/euro-a-2024-01-02-0800"), []byte(`{}`)))
		require.NoError(t, store.Set(ctx, k("predictions/pga-a-2024-01-02-0800"), []byte(`{}`)))
		require.NoError(t, store.Set(ctx, k("odds/pga_x"), []byte(`{}`)))

		keys, err := store.List(ctx, k("odds/pga-"))
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{k("odds/pga-a-2024-01-01-0800"), k("odds/pga-a-2024-01-02-0800")}, keys)

		keys, err = store.List(ctx, k("odds/lpga-"))
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, k("odds/pga-a-2024-01-01-0800")))
		require.NoError(t, store.Delete(ctx, k("odds/pga-never-existed")))

		_, found, err := store.Get(ctx, k("odds/pga-a-2024-01-01-0800"))
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(), "")
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte(`{"a":1}`)
	require.NoError(t, store.Set(ctx, "k", buf))
	buf[2] = 'b'

	v, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(v))
}

func TestSQLStore(t *testing.T) {
	db, err := OpenSQL("sqlite", ":memory:", false)
	require.NoError(t, err)

	store, err := NewSQLStore(db)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	runStoreContract(t, store, "")
}

func TestSQLStore_ClosedIsUnavailable(t *testing.T) {
	db, err := OpenSQL("sqlite", ":memory:", false)
	require.NoError(t, err)
	store, err := NewSQLStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, _, err = store.Get(context.Background(), "odds/pga-a")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	_, err = store.List(context.Background(), "odds/")
	assert.True(t, IsUnavailable(err))
}

func TestOpenSQL_UnknownBackend(t *testing.T) {
	_, err := OpenSQL("mysql", "dsn", false)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	store, err := NewRedisStoreFromURL(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	ns := "test-" + uuid.NewString() + ":"
	defer func() {
		keys, _ := store.List(ctx, ns)
		for _, k := range keys {
			_ = store.Delete(ctx, k)
		}
	}()

	runStoreContract(t, store, ns)
}

func TestRedisStore_UnreachableIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedisStore(client)
	defer store.Close()

	_, found, err := store.Get(context.Background(), "odds/pga-a")
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, IsUnavailable(err))
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2024, 4, 11, 12, 30, 0, 0, time.UTC)

	snap, err := New(KindOdds, TourPGA, "The Masters", at, map[string]int{"Scottie Scheffler": 450})
	require.NoError(t, err)
	require.NoError(t, Save(ctx, store, snap))

	got, found, err := Load(ctx, store, "odds/pga-the-masters-2024-04-11-1230")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "The Masters", got.EventName)
	assert.True(t, at.Equal(got.GeneratedAt))

	var payload map[string]int
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, 450, payload["Scottie Scheffler"])

	latest, found, err := Load(ctx, store, "odds/pga-the-masters")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap.Key, latest.Key)
}

func TestNew_RejectsUnnamedEvent(t *testing.T) {
	at := time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	for _, name := range []string{"", "  ", "!!", "🏌️"} {
		snap, err := New(KindOdds, TourPGA, name, at, map[string]int{})
		assert.ErrorIs(t, err, ErrUnnamedEvent, "%q", name)
		assert.Nil(t, snap)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "odds/pga-x-2024-01-01-0000", []byte("not json")))

	_, found, err := Load(ctx, store, "odds/pga-x-2024-01-01-0000")
	require.Error(t, err)
	assert.True(t, found)
	assert.False(t, IsUnavailable(err))
}
