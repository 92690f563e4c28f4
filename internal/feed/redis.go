package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis carries change notifications between API replicas over pub/sub.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "items:"}
}

func (r *Redis) channel(collection string) string {
	return r.prefix + collection
}

func (r *Redis) Publish(ctx context.Context, collection string) error {
	if err := r.client.Publish(ctx, r.channel(collection), "changed").Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	pubsub := r.client.Subscribe(ctx, r.channel(collection))
	// Receive blocks until the subscription is confirmed, so a publish issued
	// after Subscribe returns is never missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			_ = pubsub.Close()
		})
	}

	messages := pubsub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-stop:
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()
	return out, cancel, nil
}
