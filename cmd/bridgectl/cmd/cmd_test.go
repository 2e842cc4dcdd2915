package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tradedesk/cmd/bridgectl/cmd"
	"github.com/nfrund/tradedesk/internal/backendsim"
	"github.com/nfrund/tradedesk/internal/events"
	"github.com/nfrund/tradedesk/internal/testutils"
	"github.com/nfrund/tradedesk/internal/topicmgr"
)

// syncBuffer is a bytes.Buffer safe for a command writing while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cmd.NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "bridgectl v"), out)
}

func TestTopicsList(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "topics", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "FAMILY")
		assert.Contains(t, out, events.OrderUpdate.Name())
		assert.Contains(t, out, "update_data:settings")
		assert.Contains(t, out, "Update Data")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "topics", "list", "--format", "json")
		require.NoError(t, err)

		var doc struct {
			Topics []map[string]any `json:"topics"`
			Count  int              `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, topicmgr.Default().Count(), doc.Count)
		assert.Len(t, doc.Topics, doc.Count)
	})

	t.Run("family filter", func(t *testing.T) {
		out, err := execute(t, "topics", "list", "--family", "update_data", "-f", "json")
		require.NoError(t, err)

		var doc struct {
			Topics []struct {
				Name   string `json:"name"`
				Family string `json:"family"`
			} `json:"topics"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		require.NotEmpty(t, doc.Topics)
		for _, topic := range doc.Topics {
			assert.Equal(t, "update_data", topic.Family, topic.Name)
		}
	})

	t.Run("scope filter", func(t *testing.T) {
		out, err := execute(t, "topics", "list", "--scope", "local")
		require.NoError(t, err)
		assert.Contains(t, out, events.Notify.Name())
		assert.NotContains(t, out, events.OrderUpdate.Name())
	})

	t.Run("family and scope together", func(t *testing.T) {
		out, err := execute(t, "topics", "list", "--family", "update_data", "--scope", "backend", "-f", "json")
		require.NoError(t, err)

		var doc struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, len(topicmgr.Default().ListByFamily("update_data")), doc.Count)
	})

	t.Run("bad flags", func(t *testing.T) {
		_, err := execute(t, "topics", "list", "--scope", "remote")
		assert.ErrorContains(t, err, "invalid scope")

		_, err = execute(t, "topics", "list", "--format", "yaml")
		assert.ErrorContains(t, err, "unsupported output format")

		_, err = execute(t, "topics", "list", "--family", "orders")
		assert.ErrorContains(t, err, "unknown family")
		assert.ErrorContains(t, err, "update_data")
	})
}

func TestTopicsStats(t *testing.T) {
	out, err := execute(t, "topics", "stats", "--format", "json")
	require.NoError(t, err)

	var stats topicmgr.RegistryStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, topicmgr.Default().Count(), stats.TotalTopics)
	assert.Equal(t, 1, stats.LocalTopics)
	assert.Equal(t, len(events.UpdateKinds())+1, stats.FamilyBreakdown["update_data"])

	out, err = execute(t, "topics", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Update Data")
}

func TestTopicsGet(t *testing.T) {
	out, err := execute(t, "topics", "get", "order_update", "--format", "json")
	require.NoError(t, err)

	var topic map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &topic))
	assert.Equal(t, "order_update", topic["name"])
	assert.Equal(t, "backend", topic["scope"])

	_, err = execute(t, "topics", "get", "no_such_topic")
	require.Error(t, err)
	assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorTopicNotFound})
	assert.Contains(t, err.Error(), "topics list")
}

func TestTopicsValidate(t *testing.T) {
	out, err := execute(t, "topics", "validate", "update_data:settings")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Topic 'update_data:settings' is valid")
	assert.Contains(t, out, "Family: update_data")

	out, err = execute(t, "topics", "validate", "update_data:unknown_kind")
	require.NoError(t, err)
	assert.Contains(t, out, "not in the catalogue")

	out, err = execute(t, "topics", "validate", "Order Update")
	require.Error(t, err)
	assert.Contains(t, out, "❌")
}

func TestListen(t *testing.T) {
	testutils.ResetDefaultBridge(t)
	sim := backendsim.New()
	server := httptest.NewServer(sim)
	t.Cleanup(func() {
		sim.Close()
		server.Close()
	})

	t.Setenv("BRIDGE_TRANSPORT", "websocket")
	t.Setenv("BACKEND_URL", "ws"+strings.TrimPrefix(server.URL, "http")+"/ws")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PUBSUB_TRACING_ENABLED", "false")

	var out, errOut syncBuffer
	root := cmd.NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"listen", "--topic", "order_update", "--topic", "update_data:watchlist"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return sim.Clients().Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err := sim.Push("order_update", events.Order{OrderID: "42", Status: "FILLED"})
	require.NoError(t, err)
	_, err = sim.Push("update_data", map[string]any{
		"type":      "watchlist",
		"operation": "SET",
		"data":      events.Watchlist{Name: "main", Symbols: []string{"AAPL"}},
	})
	require.NoError(t, err)
	_, err = sim.Push("quote", events.Quote{Symbol: "AAPL"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") >= 2
	}, 5*time.Second, 10*time.Millisecond, "stdout: %s\nstderr: %s", out.String(), errOut.String())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return after cancel")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "quote was not subscribed")

	var order struct {
		Topic string       `json:"topic"`
		Data  events.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &order))
	assert.Equal(t, "order_update", order.Topic)
	assert.Equal(t, "42", order.Data.OrderID)

	var update struct {
		Topic string `json:"topic"`
		Data  struct {
			Operation string           `json:"operation"`
			Data      events.Watchlist `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &update))
	assert.Equal(t, "update_data:watchlist", update.Topic)
	assert.Equal(t, "SET", update.Data.Operation)
	assert.Equal(t, []string{"AAPL"}, update.Data.Data.Symbols)
}

func TestListenRejectsBadTopic(t *testing.T) {
	t.Setenv("BRIDGE_TRANSPORT", "memory")
	_, err := execute(t, "listen", "--topic", "Not A Topic")
	assert.Error(t, err)
}
