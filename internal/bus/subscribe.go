package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topic"
)

type subscribeConfig struct {
	key    topic.Key
	keyErr error
}

// SubscribeOption configures Subscribe.
type SubscribeOption func(*subscribeConfig)

// OnKey subscribes to the topic keyed by k instead of the bare topic.
func OnKey(k topic.Key) SubscribeOption {
	return func(c *subscribeConfig) {
		if !k.IsSet() {
			c.keyErr = ErrNullKey
			return
		}
		c.key = k
	}
}

// OnIntKey subscribes to the topic keyed by integer k.
func OnIntKey(k int64) SubscribeOption {
	return OnKey(topic.IntKey(k))
}

// OnStringKey subscribes to the topic keyed by string k.
func OnStringKey(k string) SubscribeOption {
	return OnKey(topic.StringKey(k))
}

// Subscribe registers handler for events routed to type T, creating the
// topic if this is its first subscriber. T may be an interface type to
// receive events sent with a matching cast.
// Close the returned Observer to stop receiving.
func Subscribe[T any](b *Bus, handler func(ctx context.Context, ev T) error, opts ...SubscribeOption) (*pubsub.Observer, error) {
	if handler == nil {
		return nil, fmt.Errorf("bus: nil handler")
	}

	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.keyErr != nil {
		return nil, cfg.keyErr
	}

	id := topic.Bare(topic.TypeFor[T]())
	if cfg.key.IsSet() {
		id = topic.Keyed(id.Type(), cfg.key)
	}

	wrapped := func(ctx context.Context, v any) error {
		ev, ok := v.(T)
		if !ok {
			return fmt.Errorf("bus: type assertion failed: expected %s, got %T", id.Type(), v)
		}
		return handler(ctx, ev)
	}

	// A Reset between lookup and attach closes the processor; the retry
	// attaches to the topic created after it.
	for attempt := 0; ; attempt++ {
		p, err := b.registry.LookupOrCreate(id)
		if err != nil {
			return nil, fmt.Errorf("bus: subscribe %s: %w", id, err)
		}

		obs, err := p.Subscribe(wrapped)
		if errors.Is(err, pubsub.ErrProcessorClosed) && attempt == 0 {
			continue
		}
		return obs, err
	}
}
