package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	ds "github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/require"

	tRedis "github.com/blocknative/walletprovider/journal/transport/redis"
)

func TestPutGet(t *testing.T) {
	addr := os.Getenv("WALLETPROVIDER_TEST_REDIS")
	if addr == "" {
		t.Skip("WALLETPROVIDER_TEST_REDIS not set")
	}

	cli := redis.NewClient(&redis.Options{Addr: addr})
	defer cli.Close()

	ctx := context.Background()
	s := &tRedis.RedisDatastore{Read: cli, Write: cli}

	key := ds.NewKey("journal-test-" + time.Now().String())
	require.NoError(t, s.PutWithTTL(ctx, key, []byte("data"), time.Minute))

	b, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), b)

	_, err = s.Get(ctx, ds.NewKey("journal-missing"))
	require.ErrorIs(t, err, ds.ErrNotFound)
}
