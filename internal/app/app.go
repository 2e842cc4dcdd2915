// Package app wires configuration, tracing, the transport and the bridge together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/config"
	"github.com/nfrund/tradedesk/internal/topicmgr"
	"github.com/nfrund/tradedesk/internal/transport"
)

// dialTimeout bounds the websocket handshake with the backend.
const dialTimeout = 10 * time.Second

// Tracing is the process tracer and the function that flushes it.
type Tracing struct {
	Tracer  trace.Tracer
	cleanup func()
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown() {
	t.cleanup()
}

// Link is the transport the bridge listens on.
type Link struct {
	transport.Transport
	Mode string
}

// Shutdown closes the transport.
func (l *Link) Shutdown() error {
	return l.Close()
}

// Package registers every service of the desk. cfg and logger are provided as values.
func Package(cfg *config.Config, logger *slog.Logger) func(do.Injector) {
	return do.Package(
		do.Eager(cfg),
		do.Eager(logger),
		do.Eager(topicmgr.Default()),
		do.Lazy(NewTracing),
		do.Lazy(NewLink),
		do.Lazy(NewBridge),
	)
}

// NewInjector creates the root scope for cfg.
func NewInjector(cfg *config.Config, logger *slog.Logger) *do.RootScope {
	return do.New(Package(cfg, logger))
}

// NewTracing sets up OpenTelemetry from the configuration.
func NewTracing(i do.Injector) (*Tracing, error) {
	cfg := do.MustInvoke[*config.Config](i)

	tracer, cleanup, err := transport.SetupOTel(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return &Tracing{Tracer: tracer, cleanup: cleanup}, nil
}

// NewLink opens the configured transport.
func NewLink(i do.Injector) (*Link, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)
	tracing, err := do.Invoke[*Tracing](i)
	if err != nil {
		return nil, err
	}

	switch cfg.Transport {
	case config.TransportWebSocket:
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		ws, err := transport.Dial(ctx, cfg.BackendURL, transport.WithWebSocketLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("connect to backend %s: %w", cfg.BackendURL, err)
		}
		logger.Info("Connected to backend", "url", cfg.BackendURL, "connID", ws.ID())
		return &Link{Transport: ws, Mode: cfg.Transport}, nil

	default:
		mem := transport.NewMemory(
			transport.WithMemoryLogger(logger),
			transport.WithMemoryTracer(tracing.Tracer),
		)
		return &Link{Transport: mem, Mode: config.TransportMemory}, nil
	}
}

// NewBridge adopts the process default bridge, keeping listeners registered before wiring.
func NewBridge(i do.Injector) (*bridge.Bridge, error) {
	logger := do.MustInvoke[*slog.Logger](i)
	tracing, err := do.Invoke[*Tracing](i)
	if err != nil {
		return nil, err
	}

	return bridge.ConfigureDefault(bridge.WithLogger(logger), bridge.WithTracer(tracing.Tracer)), nil
}

// Run connects the transport and starts the bridge on it. Delivery stops when ctx is
// cancelled.
func Run(ctx context.Context, i do.Injector) (*bridge.Bridge, error) {
	b, err := do.Invoke[*bridge.Bridge](i)
	if err != nil {
		return nil, err
	}
	link, err := do.Invoke[*Link](i)
	if err != nil {
		return nil, err
	}
	if err := b.Start(ctx, link); err != nil {
		return nil, fmt.Errorf("start bridge: %w", err)
	}
	return b, nil
}

// Shutdown closes the transport and flushes tracing.
func Shutdown(i *do.RootScope) error {
	report := i.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown: %w", report)
	}
	return nil
}
