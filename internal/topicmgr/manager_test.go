package topicmgr_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tradedesk/internal/topicmgr"
)

func orderUpdate() topicmgr.Definition {
	return topicmgr.DefineBackend(topicmgr.Definition{
		Name:        "order_update",
		Description: "An order changed state",
		Example:     `{"orderId":"42","status":"FILLED"}`,
	})
}

func TestDefine(t *testing.T) {
	def := topicmgr.DefineBackend(topicmgr.Definition{
		Name:        "update_data:settings",
		Scope:       topicmgr.ScopeLocal,
		Description: "Settings changed",
	})
	assert.Equal(t, topicmgr.ScopeBackend, def.Scope, "DefineBackend forces the scope")
	assert.Equal(t, "update_data", def.Family)
	assert.Equal(t, "settings", def.Member())
	assert.Equal(t, "update_data:settings", def.String())

	local := topicmgr.DefineLocal(topicmgr.Definition{Name: "notification", Description: "Toast"})
	assert.Equal(t, topicmgr.ScopeLocal, local.Scope)
	assert.Equal(t, "notification", local.Family)
	assert.Empty(t, local.Member())
}

func TestManager_Register(t *testing.T) {
	m := topicmgr.NewManager()

	require.NoError(t, m.Register(orderUpdate()))
	assert.Equal(t, 1, m.Count())

	def, ok := m.Get("order_update")
	require.True(t, ok)
	assert.Equal(t, orderUpdate(), def)

	entry, ok := m.Registry().GetEntry("order_update")
	require.True(t, ok)
	assert.False(t, entry.RegisteredAt.IsZero())

	t.Run("duplicate", func(t *testing.T) {
		err := m.Register(orderUpdate())
		var te *topicmgr.TopicError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, topicmgr.ErrorDuplicateRegistration, te.Type)
		assert.Equal(t, "order_update", te.Topic)
		assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorDuplicateRegistration})
	})

	t.Run("invalid definition", func(t *testing.T) {
		err := m.Register(topicmgr.DefineBackend(topicmgr.Definition{Name: "Bad Name", Description: "x"}))
		var te *topicmgr.TopicError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, topicmgr.ErrorValidationFailed, te.Type)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("missing description", func(t *testing.T) {
		err := m.Register(topicmgr.DefineLocal(topicmgr.Definition{Name: "quiet"}))
		assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorValidationFailed})
	})

	t.Run("invalid scope", func(t *testing.T) {
		err := m.Register(topicmgr.Definition{Name: "quote", Family: "quote", Scope: "remote", Description: "x"})
		assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorInvalidScope})
	})

	t.Run("family mismatch", func(t *testing.T) {
		err := m.Register(topicmgr.Definition{Name: "quote", Family: "prices", Scope: topicmgr.ScopeBackend, Description: "x"})
		assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorValidationFailed})
	})

	assert.Equal(t, 1, m.Count(), "failed registrations leave the catalogue untouched")
}

func TestManager_MustRegister(t *testing.T) {
	m := topicmgr.NewManager()
	def := m.MustRegister(orderUpdate())
	assert.Equal(t, "order_update", def.Name)

	assert.Panics(t, func() { m.MustRegister(orderUpdate()) })
}

func TestManager_Lookup(t *testing.T) {
	m := topicmgr.NewManager()
	m.MustRegister(orderUpdate())

	def, err := m.Lookup("order_update")
	require.NoError(t, err)
	assert.Equal(t, "order_update", def.Name)

	_, err = m.Lookup("missing")
	assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorTopicNotFound})
	assert.Contains(t, err.Error(), "missing")
}

func TestManager_Discovery(t *testing.T) {
	m := topicmgr.NewManager()
	m.MustRegister(topicmgr.DefineBackend(topicmgr.Definition{Name: "update_data:watchlist", Description: "Watchlist changed"}))
	m.MustRegister(topicmgr.DefineBackend(topicmgr.Definition{Name: "quote", Description: "Price tick"}))
	m.MustRegister(topicmgr.DefineBackend(topicmgr.Definition{Name: "update_data", Description: "Generic data update"}))
	m.MustRegister(topicmgr.DefineLocal(topicmgr.Definition{Name: "notification", Description: "Toast"}))
	m.MustRegister(topicmgr.DefineBackend(topicmgr.Definition{Name: "update_data:settings", Description: "Settings changed"}))

	names := func(defs []topicmgr.Definition) []string {
		out := make([]string, 0, len(defs))
		for _, d := range defs {
			out = append(out, d.Name)
		}
		return out
	}

	assert.Equal(t,
		[]string{"notification", "quote", "update_data", "update_data:settings", "update_data:watchlist"},
		names(m.List()))
	assert.Equal(t,
		[]string{"update_data", "update_data:settings", "update_data:watchlist"},
		names(m.ListByFamily("update_data")))
	assert.Equal(t, []string{"notification"}, names(m.ListByScope(topicmgr.ScopeLocal)))
	assert.Empty(t, m.ListByFamily("orders"))
	assert.Equal(t, []string{"notification", "quote", "update_data"}, m.Families())

	stats := m.Stats()
	assert.Equal(t, 5, stats.TotalTopics)
	assert.Equal(t, 4, stats.BackendTopics)
	assert.Equal(t, 1, stats.LocalTopics)
	assert.Equal(t, 3, stats.FamilyBreakdown["update_data"])
}

func TestValidator_ValidateName(t *testing.T) {
	v := topicmgr.NewValidator()

	tests := []struct {
		name    string
		topic   string
		wantErr string
	}{
		{"plain", "order_update", ""},
		{"family member", "update_data:settings", ""},
		{"member with dots and dashes", "update_data:strategy.v2-beta", ""},
		{"member starting with digit", "update_data:2fa", ""},
		{"empty", "", "empty"},
		{"too long", strings.Repeat("a", topicmgr.MaxNameLength+1), "too long"},
		{"uppercase", "OrderUpdate", "lowercase"},
		{"leading digit", "1quote", "lowercase"},
		{"two separators", "update_data:settings:theme", "lowercase"},
		{"empty member", "update_data:", "lowercase"},
		{"empty family", ":settings", "lowercase"},
		{"wildcard", "update_data:*", "wildcards"},
		{"spaces", "order update", "lowercase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateName(tt.topic)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, v.ValidateName(strings.Repeat("a", topicmgr.MaxNameLength)))
}

func TestManager_ValidateTopicName(t *testing.T) {
	m := topicmgr.NewManager()
	assert.NoError(t, m.ValidateTopicName("position_update"))

	err := m.ValidateTopicName("Position")
	assert.ErrorIs(t, err, &topicmgr.TopicError{Type: topicmgr.ErrorValidationFailed})
}

func TestDefault(t *testing.T) {
	assert.Same(t, topicmgr.Default(), topicmgr.Default())
}
