package telegram

import (
	"context"
	"finnhub-stock-bot/internal/metrics"
	"finnhub-stock-bot/internal/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"time"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	ChatID         int64
	Debug          bool
	UpdatesTimeout int
}

// API is the part of the Telegram client the bot uses.
//
//go:generate mockgen -package=telegram_test -destination=mock_api_test.go -source=types.go API
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StateSource gives read access to the tracked symbols.
type StateSource interface {
	States() []types.SymbolState
	State(entityID string) (types.SymbolState, bool)
}

// AlertLister lists previously fired alerts.
type AlertLister interface {
	ListAlerts(ctx context.Context, symbol string, limit int) ([]types.AlertEvent, error)
}

// Bot telegram interaction client
type Bot struct {
	API     API
	Config  BotConfig
	states  StateSource
	alerts  AlertLister
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Bot)

func WithStates(s StateSource) Option {
	return func(b *Bot) { b.states = s }
}

func WithAlerts(a AlertLister) Option {
	return func(b *Bot) { b.alerts = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
