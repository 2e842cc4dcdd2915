package testutils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tradedesk/internal/config"
	"github.com/nfrund/tradedesk/internal/testutils"
)

func TestConfigForTests(t *testing.T) {
	cfg := testutils.ConfigForTests(t)
	assert.Equal(t, config.TransportMemory, cfg.Transport)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestNewMemoryBridge(t *testing.T) {
	b, mem := testutils.NewMemoryBridge(t)

	got := make(chan any, 1)
	b.OnUpdateData("strategies", func(payload any) { got <- payload })

	testutils.PublishEnvelope(t, mem, `{"event":"update_data","data":{"type":"strategies","operation":"SET","data":[]}}`)

	select {
	case payload := <-got:
		require.NotNil(t, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("update never reached the bridge")
	}
}
