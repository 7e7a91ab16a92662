package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	ds "github.com/ipfs/go-datastore"
)

// RedisDatastore writes to the primary and reads from a replica. Both may be
// the same client.
type RedisDatastore struct {
	Read  *redis.Client
	Write *redis.Client
}

func (r *RedisDatastore) PutWithTTL(ctx context.Context, key ds.Key, b []byte, ttl time.Duration) error {
	return r.Write.Set(ctx, key.String(), b, ttl).Err()
}

func (r *RedisDatastore) Get(ctx context.Context, key ds.Key) ([]byte, error) {
	b, err := r.Read.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ds.ErrNotFound
	}
	return b, err
}
