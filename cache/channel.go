package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Channel publishes typed messages to a Redis pub/sub channel.
type Channel[T any] struct {
	client  *redis.Client
	encoder Encoder[T]
	decoder Decoder[T]
	name    string
}

func NewChannel[T any](opts Options[T]) *Channel[T] {
	return &Channel[T]{
		client:  opts.Client,
		encoder: opts.Encoder,
		decoder: opts.Decoder,
		name:    opts.Prefix,
	}
}

func (c *Channel[T]) Name() string {
	return c.name
}

// Publish returns the number of subscribers that received the message.
func (c *Channel[T]) Publish(ctx context.Context, value T) (int64, error) {
	data, err := c.encoder(value)
	if err != nil {
		return 0, errors.Join(ErrEncodeFailed, err)
	}
	return c.client.Publish(ctx, c.name, data).Result()
}

// Subscription delivers decoded channel messages. Messages that fail to
// decode are dropped.
type Subscription[T any] struct {
	pubsub *redis.PubSub
	ch     chan T
}

// Subscribe returns once Redis has confirmed the subscription, so messages
// published afterwards are not missed.
func (c *Channel[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	pubsub := c.client.Subscribe(ctx, c.name)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &Subscription[T]{pubsub: pubsub, ch: make(chan T, 64)}
	go func() {
		defer close(sub.ch)
		for msg := range pubsub.Channel() {
			value, err := c.decoder([]byte(msg.Payload))
			if err != nil {
				continue
			}
			select {
			case sub.ch <- value:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}

// Messages is closed after Close or when the subscription context is done.
func (s *Subscription[T]) Messages() <-chan T {
	return s.ch
}

func (s *Subscription[T]) Close() error {
	return s.pubsub.Close()
}
