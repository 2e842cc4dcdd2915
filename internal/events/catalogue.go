package events

import (
	"time"

	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/topicmgr"
)

// Order is the payload of order_update.
type Order struct {
	OrderID        string  `json:"orderId"`
	AccountID      string  `json:"accountId,omitempty"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Type           string  `json:"type,omitempty"`
	Quantity       float64 `json:"quantity"`
	FilledQuantity float64 `json:"filledQuantity"`
	LimitPrice     float64 `json:"limitPrice,omitempty"`
	AveragePrice   float64 `json:"averagePrice,omitempty"`
	Status         string  `json:"status"`
}

// Position is the payload of position_update.
type Position struct {
	AccountID     string  `json:"accountId,omitempty"`
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AveragePrice  float64 `json:"averagePrice"`
	MarketValue   float64 `json:"marketValue"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
}

// Quote is the payload of quote.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Spread returns Ask minus Bid.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Notification levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification is the payload of notification.
type Notification struct {
	Level   string `json:"level"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// BackendStatus is the payload of backend_status.
type BackendStatus struct {
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
	Message   string `json:"message,omitempty"`
}

// StrategyLog is the payload of strategy_log.
type StrategyLog struct {
	StrategyID string    `json:"strategyId"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Settings is the data of update_data:settings.
type Settings struct {
	Theme          string `json:"theme,omitempty"`
	Language       string `json:"language,omitempty"`
	DefaultAccount string `json:"defaultAccount,omitempty"`
	ConfirmOrders  bool   `json:"confirmOrders"`
}

// Watchlist is the data of update_data:watchlist.
type Watchlist struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// Account is one element of update_data:accounts.
type Account struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Broker   string  `json:"broker,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Equity   float64 `json:"equity"`
}

// Strategy is one element of update_data:strategies.
type Strategy struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Operations carried by update_data envelopes.
const (
	OpSet    = "SET"
	OpAdd    = "ADD"
	OpDelete = "DELETE"
)

// Backend topics.
var (
	OrderUpdate    = Define[Order]("order_update", "An order changed state", topicmgr.ScopeBackend)
	PositionUpdate = Define[Position]("position_update", "A position changed size or value", topicmgr.ScopeBackend)
	QuoteUpdate    = Define[Quote]("quote", "A price tick for a subscribed symbol", topicmgr.ScopeBackend)
	Status         = Define[BackendStatus]("backend_status", "The backend connected, disconnected or changed state", topicmgr.ScopeBackend)
	StrategyLogs   = Define[StrategyLog]("strategy_log", "A log line emitted by a running strategy", topicmgr.ScopeBackend)
	UpdateData     = Define[bridge.UpdateData](bridge.TopicUpdateData, "Generic data update, re-fired as update_data:<type>", topicmgr.ScopeBackend)
)

// Local topics.
var (
	Notify = Define[Notification]("notification", "A message to show to the user", topicmgr.ScopeLocal)
)

// Update kinds.
var (
	SettingsUpdate   = DefineUpdate[Settings]("settings", "User settings changed")
	WatchlistUpdate  = DefineUpdate[Watchlist]("watchlist", "The watchlist changed")
	AccountsUpdate   = DefineUpdate[[]Account]("accounts", "The list of trading accounts changed")
	StrategiesUpdate = DefineUpdate[[]Strategy]("strategies", "The list of strategies changed")
)

// UpdateKinds returns the kinds declared in this package.
func UpdateKinds() []string {
	return []string{
		SettingsUpdate.Kind(),
		WatchlistUpdate.Kind(),
		AccountsUpdate.Kind(),
		StrategiesUpdate.Kind(),
	}
}
