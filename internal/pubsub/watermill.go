package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/rxbus/internal/topic"
)

const (
	// Metadata keys used to carry delivery details through watermill's message.
	metaKeyTopic     = "topic"
	metaKeyEventType = "event_type"
)

// pendingEvent is a value in flight through the bridge.
type pendingEvent struct {
	msg *message.Message
	v   any
}

// WatermillBridge owns one watermill GoChannel shared by every processor it
// creates. The pushed value itself is handed to observers through the
// bridge's table of in-flight messages, keyed by message UUID; the JSON
// payload only feeds publish tracing.
//
// Publish blocks until every subscriber has picked the message up, so an
// entry lives exactly as long as its Publish call.
type WatermillBridge struct {
	pub message.Publisher
	sub message.Subscriber
	// Logger for watermill to use
	logger watermill.LoggerAdapter

	pending sync.Map // message UUID -> *pendingEvent
}

// NewWatermillBridge initializes an in-memory watermill pub/sub.
// A nil tracer disables publish tracing.
func NewWatermillBridge(outputBuffer int64, tracer trace.Tracer) *WatermillBridge {
	logger := NewSlogAdapter(slog.Default())
	// GoChannel is a simple in-memory pub/sub implementation.
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            outputBuffer,
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)

	var pub message.Publisher = goChannel
	if tracer != nil {
		pub = NewPublisherTracingMiddleware(goChannel, tracer)
	}

	return &WatermillBridge{
		pub:    pub,
		sub:    goChannel,
		logger: logger,
	}
}

// Factory returns a Factory creating one WatermillProcessor per identity.
func (wb *WatermillBridge) Factory() Factory {
	return func(id topic.Identity) (Processor, error) {
		return &WatermillProcessor{
			bridge:    wb,
			topicName: id.String(),
			observers: make(map[string]*watermillObserver),
		}, nil
	}
}

// Close shuts down the underlying GoChannel.
func (wb *WatermillBridge) Close() error {
	// Closing the subscriber will close the gochannel and stop message consumption.
	return wb.sub.Close()
}

// typeKey names a type uniquely within the process.
func typeKey(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + typeKey(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// mapToWatermillMessage wraps v into a watermill message. Values that do not
// encode as JSON travel with an empty payload.
func (wb *WatermillBridge) mapToWatermillMessage(ctx context.Context, topicName string, v any) (*message.Message, error) {
	if v == nil {
		return nil, fmt.Errorf("pubsub: nil value for %s", topicName)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Debug("Event payload not encodable, publishing without payload", "topic", topicName, "error", err)
		payload = nil
	}

	wmMsg := message.NewMessage(watermill.NewUUID(), payload)
	wmMsg.Metadata.Set(metaKeyTopic, topicName)
	wmMsg.Metadata.Set(metaKeyEventType, typeKey(reflect.TypeOf(v)))
	wmMsg.SetContext(ctx)
	return wmMsg, nil
}

// publish sends v and keeps it resolvable until every subscriber has taken it.
func (wb *WatermillBridge) publish(ctx context.Context, topicName string, v any) error {
	wmMsg, err := wb.mapToWatermillMessage(ctx, topicName, v)
	if err != nil {
		return err
	}

	wb.pending.Store(wmMsg.UUID, &pendingEvent{msg: wmMsg, v: v})
	defer wb.pending.Delete(wmMsg.UUID)

	return wb.pub.Publish(topicName, wmMsg)
}

// mapToDelivery resolves a received message to the value that was pushed.
// The context is the one set on the published message, so handlers see the
// sender's values and the publish span.
func (wb *WatermillBridge) mapToDelivery(wmMsg *message.Message) (delivery, error) {
	raw, ok := wb.pending.Load(wmMsg.UUID)
	if !ok {
		return delivery{}, fmt.Errorf("pubsub: no pending event for message %s", wmMsg.UUID)
	}
	pe := raw.(*pendingEvent)
	return delivery{ctx: pe.msg.Context(), v: pe.v}, nil
}

// WatermillProcessor is a Processor backed by one watermill topic.
// Observers receive the pushed value itself, with the sender's context.
type WatermillProcessor struct {
	bridge    *WatermillBridge
	topicName string

	mu        sync.Mutex
	observers map[string]*watermillObserver
	closed    bool
}

type watermillObserver struct {
	*queuedObserver
	cancel context.CancelFunc
}

func (o *watermillObserver) shutdown() {
	o.cancel()
	o.stop()
}

// Push publishes v to the processor's watermill topic. It returns once every
// attached observer has queued v.
func (wp *WatermillProcessor) Push(ctx context.Context, v any) error {
	wp.mu.Lock()
	closed := wp.closed
	wp.mu.Unlock()
	if closed {
		return ErrProcessorClosed
	}

	return wp.bridge.publish(context.WithoutCancel(ctx), wp.topicName, v)
}

// Subscribe starts a watermill subscription. A receive loop moves messages
// into the observer's queue and acks them; the handler runs from the queue.
func (wp *WatermillProcessor) Subscribe(handler Handler) (*Observer, error) {
	if handler == nil {
		return nil, fmt.Errorf("pubsub: nil handler for %s", wp.topicName)
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return nil, ErrProcessorClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := wp.bridge.sub.Subscribe(ctx, wp.topicName)
	if err != nil {
		cancel()
		return nil, err
	}

	obs := &watermillObserver{
		queuedObserver: newQueuedObserver(wp.topicName, handler),
		cancel:         cancel,
	}
	obs.detach = func() {
		wp.mu.Lock()
		delete(wp.observers, obs.id)
		wp.mu.Unlock()
		obs.shutdown()
	}
	wp.observers[obs.id] = obs

	go obs.run()
	go func() {
		for wmMsg := range messages {
			d, err := wp.bridge.mapToDelivery(wmMsg)
			if err != nil {
				slog.Error("Failed to resolve message", "topic", wp.topicName, "msg_id", wmMsg.UUID, "error", err)
			} else {
				obs.enqueue(d)
			}
			// Always ack: a nack on gochannel triggers immediate redelivery.
			wmMsg.Ack()
		}
		slog.Debug("Subscription message loop ended", "topic", wp.topicName, "observer_id", obs.id)
	}()

	return obs.Observer, nil
}

// ObserverCount returns the number of attached observers.
func (wp *WatermillProcessor) ObserverCount() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	return len(wp.observers)
}

// Close cancels every observer subscription. The shared bridge stays open.
func (wp *WatermillProcessor) Close() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		return nil
	}
	wp.closed = true
	for id, obs := range wp.observers {
		obs.shutdown()
		delete(wp.observers, id)
	}
	return nil
}
