package pubsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/rxbus/internal/topic"
)

type ctxKey struct{}

// sealedNote has a field JSON cannot see.
type sealedNote struct {
	Title string
	count int
}

// envelope has a field JSON cannot decode.
type envelope struct {
	Body any
}

func TestWatermillProcessor(t *testing.T) {
	ctx := context.Background()
	id := topic.Keyed(topic.TypeFor[chatMessage](), topic.StringKey("lobby"))

	t.Run("round trip preserves the dynamic type", func(t *testing.T) {
		bridge := NewWatermillBridge(16, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)

		var c collector
		obs, err := p.Subscribe(c.handle)
		require.NoError(t, err)
		assert.Equal(t, 1, p.ObserverCount())
		assert.Equal(t, id.String(), obs.Topic())

		require.NoError(t, p.Push(ctx, chatMessage{Room: "lobby", Text: "hello"}))
		require.NoError(t, p.Push(ctx, &chatMessage{Room: "lobby", Text: "ptr"}))

		require.Eventually(t, func() bool { return c.len() == 2 }, 2*time.Second, 10*time.Millisecond)
		assert.ElementsMatch(t, []any{
			chatMessage{Room: "lobby", Text: "hello"},
			&chatMessage{Room: "lobby", Text: "ptr"},
		}, c.snapshot())
	})

	t.Run("closed observer is detached", func(t *testing.T) {
		bridge := NewWatermillBridge(16, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)

		obs, err := p.Subscribe(func(context.Context, any) error { return nil })
		require.NoError(t, err)
		obs.Close()
		assert.Equal(t, 0, p.ObserverCount())
	})

	t.Run("closed processor rejects push", func(t *testing.T) {
		bridge := NewWatermillBridge(16, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)
		require.NoError(t, p.Close())

		assert.ErrorIs(t, p.Push(ctx, chatMessage{}), ErrProcessorClosed)
		_, err = p.Subscribe(func(context.Context, any) error { return nil })
		assert.ErrorIs(t, err, ErrProcessorClosed)
	})

	t.Run("values are delivered intact", func(t *testing.T) {
		bridge := NewWatermillBridge(16, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)

		var c collector
		_, err = p.Subscribe(c.handle)
		require.NoError(t, err)

		hidden := sealedNote{Title: "a", count: 42}
		boxed := envelope{Body: chatMessage{Room: "lobby", Text: "hi"}}
		ptr := &chatMessage{Room: "lobby", Text: "same reference"}
		ch := make(chan int)

		require.NoError(t, p.Push(ctx, hidden))
		require.NoError(t, p.Push(ctx, boxed))
		require.NoError(t, p.Push(ctx, ptr))
		require.NoError(t, p.Push(ctx, ch))

		require.Eventually(t, func() bool { return c.len() == 4 }, 2*time.Second, 10*time.Millisecond)
		got := c.snapshot()
		assert.Equal(t, hidden, got[0])
		assert.Equal(t, boxed, got[1])
		assert.Same(t, ptr, got[2])
		assert.Equal(t, ch, got[3])
	})

	t.Run("push returns once observers have queued the value", func(t *testing.T) {
		bridge := NewWatermillBridge(0, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)

		release := make(chan struct{})
		var c collector
		_, err = p.Subscribe(func(ctx context.Context, v any) error {
			<-release
			return c.handle(ctx, v)
		})
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			require.NoError(t, p.Push(ctx, chatMessage{Text: fmt.Sprint(i)}))
		}
		close(release)

		require.Eventually(t, func() bool { return c.len() == 5 }, 2*time.Second, 10*time.Millisecond)
		for i, v := range c.snapshot() {
			assert.Equal(t, chatMessage{Text: fmt.Sprint(i)}, v)
		}
	})

	t.Run("handlers see the sender context", func(t *testing.T) {
		bridge := NewWatermillBridge(16, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)

		got := make(chan any, 1)
		_, err = p.Subscribe(func(ctx context.Context, _ any) error {
			got <- ctx.Value(ctxKey{})
			return nil
		})
		require.NoError(t, err)

		sendCtx, cancel := context.WithCancel(context.WithValue(ctx, ctxKey{}, "req-1"))
		require.NoError(t, p.Push(sendCtx, chatMessage{}))
		cancel()

		select {
		case v := <-got:
			assert.Equal(t, "req-1", v)
		case <-time.After(2 * time.Second):
			t.Fatal("event not received")
		}
	})

	t.Run("nil values are rejected", func(t *testing.T) {
		bridge := NewWatermillBridge(16, nil)
		defer bridge.Close()

		p, err := bridge.Factory()(id)
		require.NoError(t, err)

		assert.Error(t, p.Push(ctx, nil))
	})
}

func TestPublisherTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	bridge := NewWatermillBridge(16, tp.Tracer(TracerName))
	defer bridge.Close()

	id := topic.Bare(topic.TypeFor[chatMessage]())
	p, err := bridge.Factory()(id)
	require.NoError(t, err)

	require.NoError(t, p.Push(context.Background(), chatMessage{Room: "r", Text: "t"}))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pubsub.publish."+id.String(), spans[0].Name())

	got := make(chan trace.SpanContext, 1)
	_, err = p.Subscribe(func(ctx context.Context, _ any) error {
		got <- trace.SpanContextFromContext(ctx)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Push(context.Background(), chatMessage{Room: "r", Text: "t"}))

	select {
	case sc := <-got:
		spans = recorder.Ended()
		require.Len(t, spans, 2)
		assert.Equal(t, spans[1].SpanContext().SpanID(), sc.SpanID())
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	adapter := NewSlogAdapter(logger).With(watermill.LogFields{"pubsub": "gochannel"})

	adapter.Info("No subscribers to send message", watermill.LogFields{"topic": "t"})
	adapter.Debug("Waiting for subscribers ack", nil)
	adapter.Trace("Sent message to subscriber", nil)
	assert.Empty(t, buf.String())

	adapter.Error("Publish failed", errors.New("boom"), watermill.LogFields{"topic": "t"})
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "topic=t")
	assert.Contains(t, out, "pubsub=gochannel")
}

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		require.NotNil(t, cleanup)

		_, span := tracer.Start(ctx, "test")
		span.End()
		cleanup()
	})

	t.Run("enabled tracing with unreachable collector", func(t *testing.T) {
		config := TracingConfig{
			Enabled:     true,
			ServiceName: "test-service",
			ZipkinURL:   "http://invalid-url:9411/api/v2/spans",
		}
		tracer, cleanup, err := SetupOTel(ctx, config)
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}

func TestLoadTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PUBSUB_TRACING_ENABLED", "true")
	t.Setenv("PUBSUB_TRACING_SERVICE_NAME", "bus-test")
	t.Setenv("PUBSUB_TRACING_ZIPKIN_URL", "http://zipkin:9411/api/v2/spans")

	config := LoadTracingConfigFromEnv()
	assert.True(t, config.Enabled)
	assert.Equal(t, "bus-test", config.ServiceName)
	assert.Equal(t, "http://zipkin:9411/api/v2/spans", config.ZipkinURL)
}
