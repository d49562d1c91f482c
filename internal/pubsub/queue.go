package pubsub

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// delivery is one queued value together with the sender's context.
type delivery struct {
	ctx context.Context
	v   any
}

// queuedObserver runs its handler in a dedicated goroutine over an
// unbounded FIFO, so enqueue never waits on the handler.
type queuedObserver struct {
	*Observer
	handler Handler

	mu     sync.Mutex
	queue  []delivery
	signal chan struct{}
	done   chan struct{}
}

func newQueuedObserver(topicName string, handler Handler) *queuedObserver {
	return &queuedObserver{
		Observer: newObserver(topicName),
		handler:  handler,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (o *queuedObserver) enqueue(d delivery) {
	o.mu.Lock()
	o.queue = append(o.queue, d)
	o.mu.Unlock()

	select {
	case o.signal <- struct{}{}:
	default:
	}
}

func (o *queuedObserver) next() (delivery, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) == 0 {
		return delivery{}, false
	}
	d := o.queue[0]
	o.queue[0] = delivery{}
	o.queue = o.queue[1:]
	return d, true
}

// stop ends the run loop. Values still queued are discarded.
func (o *queuedObserver) stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	select {
	case <-o.done:
	default:
		close(o.done)
		o.queue = nil
	}
}

func (o *queuedObserver) run() {
	for {
		select {
		case <-o.signal:
		case <-o.done:
			return
		}

		for {
			select {
			case <-o.done:
				return
			default:
			}

			d, ok := o.next()
			if !ok {
				break
			}
			o.handle(d)
		}
	}
}

func (o *queuedObserver) handle(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Observer handler panicked",
				"topic", o.topic, "observer_id", o.id, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := o.handler(d.ctx, d.v); err != nil {
		slog.Error("Failed to handle event", "topic", o.topic, "observer_id", o.id, "error", err)
	}
}
