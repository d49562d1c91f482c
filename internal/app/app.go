package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/rxbus/internal/bus"
	"github.com/nfrund/rxbus/internal/config"
	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topicmgr"
)

// App holds the wired bus and the container that owns its dependencies.
type App struct {
	Config   *config.Config
	Bus      *bus.Bus
	injector *do.RootScope
}

// New builds the dependency graph for cfg and resolves the bus.
func New(cfg *config.Config) (*App, error) {
	injector := NewContainer(cfg)

	b, err := do.Invoke[*bus.Bus](injector)
	if err != nil {
		injector.Shutdown()
		return nil, fmt.Errorf("app: resolve bus: %w", err)
	}

	return &App{
		Config:   cfg,
		Bus:      b,
		injector: injector,
	}, nil
}

// Close tears down every topic, then shuts the container down.
func (a *App) Close() {
	if err := a.Bus.Reset(); err != nil {
		slog.Error("Failed to reset bus", "error", err)
	}
	a.injector.Shutdown()
}

// NewContainer registers the bus providers for cfg.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.Provide(injector, provideTracing)
	do.Provide(injector, provideBackend)
	do.Provide(injector, provideRegistry)
	do.Provide(injector, provideBus)
	return injector
}

// Tracing wraps the tracer and its cleanup so the container can shut it down.
type Tracing struct {
	Tracer  trace.Tracer
	cleanup func()
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracing) Shutdown() error {
	t.cleanup()
	return nil
}

// Backend is the processor factory chosen by configuration.
type Backend struct {
	Name    string
	Factory pubsub.Factory
	close   func() error
}

// Shutdown releases backend resources.
func (b *Backend) Shutdown() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func provideTracing(i do.Injector) (*Tracing, error) {
	cfg := do.MustInvoke[*config.Config](i)

	tracer, cleanup, err := pubsub.SetupOTel(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("app: setup tracing: %w", err)
	}
	return &Tracing{Tracer: tracer, cleanup: cleanup}, nil
}

func provideBackend(i do.Injector) (*Backend, error) {
	cfg := do.MustInvoke[*config.Config](i)

	switch cfg.Backend {
	case config.BackendWatermill:
		tracing := do.MustInvoke[*Tracing](i)
		bridge := pubsub.NewWatermillBridge(cfg.WatermillBuffer, tracing.Tracer)
		return &Backend{Name: cfg.Backend, Factory: bridge.Factory(), close: bridge.Close}, nil
	case config.BackendMemory, "":
		return &Backend{Name: config.BackendMemory, Factory: pubsub.MemoryFactory}, nil
	default:
		return nil, fmt.Errorf("app: unknown backend %q", cfg.Backend)
	}
}

func provideRegistry(i do.Injector) (*topicmgr.Registry, error) {
	backend := do.MustInvoke[*Backend](i)
	return topicmgr.NewRegistry(backend.Factory), nil
}

func provideBus(i do.Injector) (*bus.Bus, error) {
	registry := do.MustInvoke[*topicmgr.Registry](i)
	tracing := do.MustInvoke[*Tracing](i)

	slog.Debug("Bus wired", "backend", do.MustInvoke[*Backend](i).Name)
	return bus.New(registry, bus.WithTracer(tracing.Tracer)), nil
}
