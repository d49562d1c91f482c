package pubsub

import (
	"context"
	"errors"

	"github.com/nfrund/rxbus/internal/topic"
)

// ErrProcessorClosed is returned when pushing to or subscribing on a closed processor.
var ErrProcessorClosed = errors.New("pubsub: processor closed")

// Handler defines the function signature for processing a delivered value.
type Handler func(ctx context.Context, v any) error

// Processor is a multicast channel bound to one topic identity.
// Every observer sees every value pushed after it subscribed.
type Processor interface {
	// Push delivers one value to all current observers. It does not wait for
	// observers to process the value.
	Push(ctx context.Context, v any) error
	// Subscribe attaches a new observer.
	Subscribe(handler Handler) (*Observer, error)
	// ObserverCount returns the number of currently attached observers.
	ObserverCount() int
	// Close detaches all observers and rejects further pushes.
	Close() error
}

// Factory creates the processor for a topic identity.
type Factory func(id topic.Identity) (Processor, error)
