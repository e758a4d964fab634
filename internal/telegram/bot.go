package telegram

import (
	"bytes"
	"context"
	"finnhub-stock-bot/internal/types"
	"finnhub-stock-bot/lib/helpers"
	"finnhub-stock-bot/lib/translation"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"runtime"
	"strings"
	"time"
)

const alertsListLimit = 10

// NewBot creates new telegram bot
func NewBot(c BotConfig, opts ...Option) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return NewBotWithAPI(bot, c, opts...), nil
}

// NewBotWithAPI wraps an existing client.
func NewBotWithAPI(api API, c BotConfig, opts ...Option) *Bot {
	b := &Bot{API: api, Config: c, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.API.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m)
}

// Publish sends a fired alert to the configured chat.
func (b *Bot) Publish(_ context.Context, alert types.AlertEvent) error {
	if b.Config.ChatID == 0 {
		return errors.New("telegram chat_id is not configured")
	}
	return b.SendMessage(Message{ChatID: b.Config.ChatID, Text: b.alertText(alert)})
}

func (b *Bot) alertText(alert types.AlertEvent) string {
	var text strings.Builder
	text.WriteString("🔔 *")
	text.WriteString(helpers.EscapeMarkdownV2(alert.Message))
	text.WriteString("*")

	if b.states == nil {
		return text.String()
	}
	state, ok := b.states.State(types.Symbol{Ticker: alert.Symbol}.EntityID())
	if !ok || !state.HasData() {
		return text.String()
	}

	text.WriteString("\n")
	text.WriteString(helpers.EscapeMarkdownV2(translation.Translate("Price: %s %s",
		helpers.FormatPriceUS(state.Quote.Current), state.Symbol.Currency)))
	if state.Quote.Timestamp > 0 {
		text.WriteString("\n")
		text.WriteString(helpers.EscapeMarkdownV2(translation.Translate("Reported %s",
			helpers.FormatAge(state.Quote.ReportTime(), b.now()))))
	}
	return text.String()
}

// Run answers bot commands until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	updates := b.API.GetUpdatesChan(updatesConfig)
	defer b.API.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.handle(ctx, u)
		}
	}
}

func (b *Bot) handle(ctx context.Context, u tgbotapi.Update) {
	if u.Message == nil || !u.Message.IsCommand() {
		log.Debug("Received non-message or non-command")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text := b.HandleUpdate(ctx, u)
	err := b.SendMessage(Message{
		ChatID:    u.Message.Chat.ID,
		MessageID: u.Message.MessageID,
		Text:      text,
	})
	b.metrics.ObserveCommand(u.Message.Command(), err)
	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	}
}

// HandleUpdate returns the reply to a command message.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) string {
	log.Debugf("received command: %s", u.Message.Command())

	switch u.Message.Command() {
	case "status":
		return b.statusText(strings.TrimSpace(u.Message.CommandArguments()))
	case "alerts":
		return b.alertsText(ctx, strings.ToUpper(strings.TrimSpace(u.Message.CommandArguments())))
	default:
		return helpers.EscapeMarkdownV2(translation.Translate("Commands:\n/status [SYMBOL] current quotes\n/alerts [SYMBOL] recently fired alerts"))
	}
}

func (b *Bot) statusText(symbol string) string {
	if b.states == nil {
		return helpers.EscapeMarkdownV2(translation.Translate("No symbols are tracked."))
	}

	var states []types.SymbolState
	if symbol == "" {
		states = b.states.States()
	} else if state, ok := b.states.State(types.Symbol{Ticker: symbol}.EntityID()); ok {
		states = append(states, state)
	} else {
		return helpers.EscapeMarkdownV2(translation.Translate("Symbol %s is not tracked.", strings.ToUpper(symbol)))
	}
	if len(states) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("No symbols are tracked."))
	}

	var text strings.Builder
	for i, state := range states {
		if i > 0 {
			text.WriteString("\n")
		}
		text.WriteString(fmt.Sprintf("*%s* %s", helpers.EscapeMarkdownV2(state.Symbol.Name()),
			helpers.EscapeMarkdownV2("("+state.Symbol.Ticker+")")))
		if !state.HasData() {
			text.WriteString(helpers.EscapeMarkdownV2(": " + translation.Translate("no data yet")))
			continue
		}
		line := translation.Translate(": %s %s (%s%%), updated %s",
			helpers.FormatPriceUS(state.Quote.Current), state.Symbol.Currency,
			helpers.FormatPercent(state.Quote.PercentChange), helpers.FormatAge(state.UpdatedAt, b.now()))
		text.WriteString(helpers.EscapeMarkdownV2(line))
		if state.ActiveCondition != types.ConditionNone && state.LastAlert != nil {
			text.WriteString("\n  ⚠️ ")
			text.WriteString(helpers.EscapeMarkdownV2(state.LastAlert.Message))
		}
	}
	return text.String()
}

func (b *Bot) alertsText(ctx context.Context, symbol string) string {
	if b.alerts == nil {
		return helpers.EscapeMarkdownV2(translation.Translate("Alert history is not available."))
	}

	alerts, err := b.alerts.ListAlerts(ctx, symbol, alertsListLimit)
	if err != nil {
		log.Errorf("Error fetching alerts: %v", err)
		return helpers.EscapeMarkdownV2(translation.Translate("Failed to fetch alerts. Please try again later."))
	}
	if len(alerts) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("No alerts fired yet."))
	}

	var text strings.Builder
	text.WriteString(helpers.EscapeMarkdownV2(translation.Translate("Recent alerts:")))
	for _, alert := range alerts {
		text.WriteString("\n• ")
		text.WriteString(helpers.EscapeMarkdownV2(fmt.Sprintf("%s (%s)", alert.Message, helpers.FormatAge(alert.FiredAt, b.now()))))
	}
	return text.String()
}
