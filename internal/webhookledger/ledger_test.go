package webhookledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/AlexZinkM/joint-wallet/internal/crypto"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testParams = crypto.ScryptParams{N: 1 << 10, R: 8, P: 1}

func materials() Materials {
	return Materials{
		WalletID:       "wallet-1",
		Chain:          "EVM",
		OwnerUserID:    "user-owner",
		DelegateUserID: "user-delegate",
		PublicKey:      "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Share:          json.RawMessage(`{"share":"s3cr3t"}`),
		APIKey:         "dyn_api_key",
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqliteStore, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"), []byte("passphrase"), testParams)
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	redisStore, err := NewRedisStore(ctx, client, []byte("passphrase"), testParams)
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
}

func TestMaterializeOncePerEvent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			led := New(store, WithLogger(zaptest.NewLogger(t)))

			first, created, err := led.Materialize(ctx, "evt-1", materials())
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, StatusActive, first.Status)
			assert.NotEmpty(t, first.ID)

			second, created, err := led.Materialize(ctx, "evt-1", materials())
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first.ID, second.ID)
			assert.JSONEq(t, `{"share":"s3cr3t"}`, string(second.DecryptedShare))
			assert.Equal(t, "dyn_api_key", second.DecryptedAPIKey)
			assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

			got, err := led.Get(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, first.ID, got.ID)

			_, err = led.Get(ctx, "evt-unknown")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestReplaySkipsProduce(t *testing.T) {
	ctx := context.Background()
	led := New(NewMemoryStore())
	var calls atomic.Int32
	produce := func(context.Context) (*Materials, error) {
		calls.Add(1)
		m := materials()
		return &m, nil
	}

	_, _, err := led.MaterializeFunc(ctx, "evt-2", produce)
	require.NoError(t, err)
	_, created, err := led.MaterializeFunc(ctx, "evt-2", produce)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentDeliveriesResolveToOneRecord(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			led := New(store)
			var calls, createdCount atomic.Int32
			ids := sync.Map{}

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					rec, created, err := led.MaterializeFunc(ctx, "evt-concurrent", func(context.Context) (*Materials, error) {
						calls.Add(1)
						m := materials()
						return &m, nil
					})
					if !assert.NoError(t, err) {
						return
					}
					if created {
						createdCount.Add(1)
					}
					ids.Store(rec.ID, true)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), createdCount.Load())
			assert.Equal(t, int32(1), calls.Load())
			n := 0
			ids.Range(func(_, _ any) bool { n++; return true })
			assert.Equal(t, 1, n)
		})
	}
}

func TestStoreInsertRaceAcrossLedgers(t *testing.T) {
	// Two ledgers over one store model two processes: the store decides.
	store := NewMemoryStore()
	ctx := context.Background()
	a, b := New(store), New(store)

	var wg sync.WaitGroup
	results := make([]*Record, 2)
	for i, led := range []*Ledger{a, b} {
		wg.Add(1)
		go func(i int, led *Ledger) {
			defer wg.Done()
			rec, _, err := led.Materialize(ctx, "evt-shared", materials())
			assert.NoError(t, err)
			results[i] = rec
		}(i, led)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, results[0].ID, results[1].ID)
	assert.Equal(t, 1, store.Len())
}

func TestProduceFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	led := New(store)
	boom := errors.New("decrypt failed")

	_, _, err := led.MaterializeFunc(ctx, "evt-3", func(context.Context) (*Materials, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	_, created, err := led.Materialize(ctx, "evt-3", materials())
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEmptyEventIDRejected(t *testing.T) {
	_, _, err := New(NewMemoryStore()).Materialize(context.Background(), "  ", materials())
	assert.Error(t, err)
}

func TestSQLiteSecretsAreSealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenSQLite(ctx, path, []byte("passphrase"), testParams)
	require.NoError(t, err)
	defer store.Close()

	_, _, err = New(store).Materialize(ctx, "evt-4", materials())
	require.NoError(t, err)

	var share, apiKey string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT share_sealed, api_key_sealed FROM delegated_access WHERE event_id = ?`, "evt-4").Scan(&share, &apiKey))
	assert.NotContains(t, share, "s3cr3t")
	assert.NotEqual(t, "dyn_api_key", apiKey)

	// reopening with the same passphrase reuses the stored salt
	reopened, err := OpenSQLite(ctx, path, []byte("passphrase"), testParams)
	require.NoError(t, err)
	defer reopened.Close()
	rec, err := reopened.Get(ctx, "evt-4")
	require.NoError(t, err)
	assert.Equal(t, "dyn_api_key", rec.DecryptedAPIKey)

	wrong, err := OpenSQLite(ctx, path, []byte("other"), testParams)
	require.NoError(t, err)
	defer wrong.Close()
	_, err = wrong.Get(ctx, "evt-4")
	assert.Error(t, err)
}

func TestStripeIsStable(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("evt-%d", i)
		assert.Equal(t, stripe(key), stripe(key))
		assert.Less(t, stripe(key), lockStripes)
	}
}
