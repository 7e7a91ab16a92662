package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	ds "github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/journal/transport/postgres"
)

// Requires a database migrated with the journal migrations.
func TestPutGet(t *testing.T) {
	dbURL := os.Getenv("WALLETPROVIDER_TEST_POSTGRES")
	if dbURL == "" {
		t.Skip("WALLETPROVIDER_TEST_POSTGRES not set")
	}

	db, err := postgres.Open(dbURL, 2, 2, time.Minute)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	s := postgres.NewDatastore(db)

	key := ds.NewKey("journal-test-" + time.Now().String())
	require.NoError(t, s.PutWithTTL(ctx, key, []byte(`{"a":1}`), time.Minute))

	b, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(b))

	expired := ds.NewKey("journal-expired-" + time.Now().String())
	require.NoError(t, s.PutWithTTL(ctx, expired, []byte(`{}`), -time.Minute))
	_, err = s.Get(ctx, expired)
	require.ErrorIs(t, err, ds.ErrNotFound)

	n, err := s.RemoveExpired(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))
}
