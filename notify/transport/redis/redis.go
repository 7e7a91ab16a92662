package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lthibault/log"
)

const resubscribeDelay = time.Second

// Pubsub moves raw frames over a redis channel.
type Pubsub struct {
	Redis  *redis.Client
	Logger log.Logger
}

func (r *Pubsub) Publish(ctx context.Context, topic string, data []byte) error {
	return r.Redis.Publish(ctx, topic, data).Err()
}

// Subscribe returns a channel of frames published on topic. The subscription
// is re-established when redis drops it and the channel closes with ctx.
func (r *Pubsub) Subscribe(ctx context.Context, topic string) <-chan []byte {
	logger := r.Logger.WithField("topic", topic)

	sub := make(chan []byte)
	go func() {
		defer close(sub)

		for ctx.Err() == nil {
			pubsub := r.Redis.Subscribe(ctx, topic)
			logger.Debug("redis subscription started")

			r.forward(ctx, pubsub.Channel(), sub)
			pubsub.Close()

			if ctx.Err() != nil {
				return
			}
			logger.Warn("redis subscription closed")

			select {
			case <-time.After(resubscribeDelay):
			case <-ctx.Done():
			}
		}
	}()

	return sub
}

func (r *Pubsub) forward(ctx context.Context, in <-chan *redis.Message, out chan<- []byte) {
	for {
		select {
		case data, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- []byte(data.Payload):
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
