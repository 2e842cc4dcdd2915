package testutils

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joho/godotenv"

	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/config"
	"github.com/nfrund/tradedesk/internal/transport"
)

// ConfigForTests loads the .env.test file and returns a valid config.
// This is the definitive way to get configuration for integration tests.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	// 1. Find project root by looking for go.mod to reliably locate .env.test
	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	// 2. Manually read the .env.test file.
	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil {
		t.Fatalf("failed to load .env.test file: %v", err)
	}

	// 3. Use t.Setenv so every value is restored when the test ends.
	for key, value := range env {
		t.Setenv(key, value)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	return cfg
}

// Logger returns a logger that writes through t.Log, so output shows up only for
// failing or verbose tests. Lines logged by goroutines after the test ended are dropped.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	w := &testWriter{t: t}
	t.Cleanup(w.stop)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	mu   sync.Mutex
	t    *testing.T
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.done {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func (w *testWriter) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.done = true
}

// NewMemoryBridge returns a started bridge listening on a fresh in-memory transport.
// Both are torn down when the test ends.
func NewMemoryBridge(t *testing.T, opts ...bridge.Option) (*bridge.Bridge, *transport.Memory) {
	t.Helper()

	mem := transport.NewMemory(transport.WithMemoryLogger(Logger(t)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		mem.Close()
	})

	b := bridge.New(append([]bridge.Option{bridge.WithLogger(Logger(t))}, opts...)...)
	if err := b.Start(ctx, mem); err != nil {
		t.Fatalf("failed to start bridge: %v", err)
	}
	return b, mem
}

// PublishEnvelope publishes a raw {"event", "data"} frame on the message channel.
func PublishEnvelope(t *testing.T, pub transport.Publisher, frame string) {
	t.Helper()
	msg := transport.Message{Channel: transport.ChannelMessage, Payload: []byte(frame)}
	if err := pub.Publish(context.Background(), msg); err != nil {
		t.Fatalf("failed to publish %s: %v", frame, err)
	}
}

// ResetDefaultBridge clears the process-wide bridge for the duration of the test so that
// wiring starts from a fresh, idle default. The previous default is restored on cleanup.
func ResetDefaultBridge(t *testing.T) {
	t.Helper()
	previous := bridge.Default()
	bridge.SetDefault(nil)
	t.Cleanup(func() { bridge.SetDefault(previous) })
}
