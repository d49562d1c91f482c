package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nfrund/rxbus/internal/topic"
)

// MemoryProcessor is the default in-process multicast channel.
// Values are handed to observers as-is. Each observer drains its own
// unbounded queue in a dedicated goroutine, so Push never waits on handlers.
type MemoryProcessor struct {
	name      string
	mu        sync.Mutex
	observers []*queuedObserver
	closed    bool
	pushed    atomic.Uint64
}

// NewMemoryProcessor creates an empty processor for the given identity.
func NewMemoryProcessor(id topic.Identity) *MemoryProcessor {
	return &MemoryProcessor{name: id.String()}
}

// MemoryFactory is a Factory producing MemoryProcessors.
func MemoryFactory(id topic.Identity) (Processor, error) {
	return NewMemoryProcessor(id), nil
}

// Push enqueues v for every current observer. Pushes are serialized so
// all observers see values in the same order.
func (p *MemoryProcessor) Push(ctx context.Context, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProcessorClosed
	}

	d := delivery{ctx: context.WithoutCancel(ctx), v: v}
	for _, o := range p.observers {
		o.enqueue(d)
	}
	p.pushed.Add(1)
	return nil
}

// Subscribe attaches handler as a new observer.
func (p *MemoryProcessor) Subscribe(handler Handler) (*Observer, error) {
	if handler == nil {
		return nil, fmt.Errorf("pubsub: nil handler for %s", p.name)
	}

	o := newQueuedObserver(p.name, handler)
	o.detach = func() { p.remove(o) }

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrProcessorClosed
	}
	p.observers = append(p.observers, o)
	p.mu.Unlock()

	go o.run()

	slog.Debug("Observer attached", "topic", p.name, "observer_id", o.id)
	return o.Observer, nil
}

// ObserverCount returns the number of attached observers.
func (p *MemoryProcessor) ObserverCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.observers)
}

// Pushed returns how many values were pushed since creation.
func (p *MemoryProcessor) Pushed() uint64 {
	return p.pushed.Load()
}

// Close detaches every observer. Values still queued are discarded.
func (p *MemoryProcessor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	observers := p.observers
	p.observers = nil
	p.mu.Unlock()

	for _, o := range observers {
		o.stop()
	}
	return nil
}

func (p *MemoryProcessor) remove(o *queuedObserver) {
	p.mu.Lock()
	for i, cur := range p.observers {
		if cur == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	o.stop()
	slog.Debug("Observer detached", "topic", p.name, "observer_id", o.id)
}
