package messaging

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// goRedisClient adapts *redis.Client to RedisClient.
type goRedisClient struct {
	rdb *redis.Client

	mu      sync.Mutex
	pubsubs []*redis.PubSub
}

// NewGoRedisClient wraps an existing client. Close releases only the
// subscriptions opened through the adapter; the caller owns rdb.
func NewGoRedisClient(rdb *redis.Client) RedisClient {
	return &goRedisClient{rdb: rdb}
}

func (c *goRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

func (c *goRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	ps := c.rdb.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so errors surface here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	c.mu.Lock()
	c.pubsubs = append(c.pubsubs, ps)
	c.mu.Unlock()

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *goRedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, ps := range c.pubsubs {
		if err := ps.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.pubsubs = nil
	return firstErr
}
