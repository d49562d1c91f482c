package bus

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topic"
	"github.com/nfrund/rxbus/internal/topicmgr"
)

// Bus routes events to the topics of a registry. A Bus is usually created
// once per process and shared; tests should build their own.
type Bus struct {
	registry *topicmgr.Registry
	tracer   trace.Tracer

	// mu serializes Send so that validation, routing and delivery of one
	// event are observed as a unit.
	mu sync.Mutex
}

// Option configures a Bus.
type Option func(*Bus)

// WithTracer sets the tracer used for send spans.
func WithTracer(t trace.Tracer) Option {
	return func(b *Bus) {
		if t != nil {
			b.tracer = t
		}
	}
}

// New creates a Bus over registry. A nil registry gets a fresh in-memory one.
func New(registry *topicmgr.Registry, opts ...Option) *Bus {
	if registry == nil {
		registry = topicmgr.NewRegistry(nil)
	}
	b := &Bus{
		registry: registry,
		tracer:   noop.NewTracerProvider().Tracer(pubsub.TracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry returns the registry the bus dispatches to.
func (b *Bus) Registry() *topicmgr.Registry {
	return b.registry
}

// Reset tears down every topic. Existing observers are detached.
func (b *Bus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.registry.Reset()
}

// Send delivers event according to opts and reports whether at least one
// existing topic received it. Nobody listening is not an error: Send then
// returns false. Validation errors abort the send before any delivery.
func (b *Bus) Send(ctx context.Context, event any, opts SendOptions) (bool, error) {
	ctx, span := b.tracer.Start(ctx, "bus.send",
		trace.WithAttributes(
			attribute.String("bus.key", opts.key.String()),
			attribute.Bool("bus.send_to_default", opts.sendToDefault),
		),
	)
	defer span.End()

	if event != nil {
		span.SetAttributes(attribute.String("bus.event_type", reflect.TypeOf(event).String()))
	}
	if opts.castTo != nil {
		span.SetAttributes(attribute.String("bus.cast", opts.castTo.String()))
	}

	delivered, err := b.send(ctx, event, opts)
	span.SetAttributes(attribute.Bool("bus.delivered", delivered))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return delivered, err
}

func (b *Bus) send(ctx context.Context, event any, opts SendOptions) (bool, error) {
	if isNil(event) {
		return false, ErrNullEvent
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	value := event
	typ := reflect.TypeOf(event)
	if opts.castTo != nil {
		cast, ok := Cast(event, opts.castTo)
		if !ok {
			return false, &CastError{From: typ, To: opts.castTo}
		}
		value = cast
		typ = opts.castTo
	}

	var (
		delivered bool
		errs      []error
	)

	if !opts.key.IsSet() || opts.sendToDefault {
		ok, err := b.deliver(ctx, topic.Bare(typ), value)
		delivered = delivered || ok
		if err != nil {
			errs = append(errs, err)
		}
	}

	if opts.key.IsSet() {
		ok, err := b.deliver(ctx, topic.Keyed(typ, opts.key), value)
		delivered = delivered || ok
		if err != nil {
			errs = append(errs, err)
		}
	}

	return delivered, errors.Join(errs...)
}

// deliver pushes value into the processor for id if one exists.
func (b *Bus) deliver(ctx context.Context, id topic.Identity, value any) (bool, error) {
	p, found := b.registry.LookupExisting(id)
	if !found {
		slog.Debug("No topic for event, skipping", "topic", id.String())
		return false, nil
	}

	if err := p.Push(ctx, value); err != nil {
		if errors.Is(err, pubsub.ErrProcessorClosed) {
			slog.Debug("Topic closed, skipping", "topic", id.String())
			return false, nil
		}
		slog.Error("Failed to push event", "topic", id.String(), "error", err)
		return false, err
	}

	slog.Debug("Event delivered", "topic", id.String(), "observers", p.ObserverCount())
	return true, nil
}
