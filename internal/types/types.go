package types

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	// EntityPrefix is prepended to every tracked symbol's entity id.
	EntityPrefix = "sensor.finnhub_"

	Attribution     = "Stock market information provided by Finnhub"
	DefaultCurrency = "USD"
)

var currencyIcons = map[string]string{
	"BTC": "mdi:currency-btc",
	"EUR": "mdi:currency-eur",
	"GBP": "mdi:currency-gbp",
	"INR": "mdi:currency-inr",
	"RUB": "mdi:currency-rub",
	"TRY": "mdi:currency-try",
	"USD": "mdi:currency-usd",
}

// Symbol is a configured ticker together with its alert thresholds.
type Symbol struct {
	Ticker           string  `json:"symbol"`
	DisplayName      string  `json:"display_name"`
	Currency         string  `json:"currency"`
	RisingThreshold  float64 `json:"rising_threshold"`
	FallingThreshold float64 `json:"falling_threshold"`
}

// EntityID returns the stable query id of the symbol, e.g. sensor.finnhub_aapl.
func (s Symbol) EntityID() string {
	var b strings.Builder
	b.WriteString(EntityPrefix)
	for _, r := range strings.ToLower(s.Ticker) {
		if (r >= 'a' && r <= 'z') || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}

// Name is the human readable name used in alert messages.
func (s Symbol) Name() string {
	name := strings.TrimSpace(s.DisplayName)
	if name == "Finnhub" {
		return s.Ticker
	}
	name = strings.TrimSpace(strings.TrimPrefix(name, "Finnhub "))
	if name == "" {
		return s.Ticker
	}
	return name
}

func (s Symbol) Icon() string {
	return currencyIcons[strings.ToUpper(s.Currency)]
}

// QuoteSnapshot is the market quote observed during one poll.
type QuoteSnapshot struct {
	Current       float64 `json:"current"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	Timestamp     int64   `json:"timestamp"`
}

// ReportTime is the exchange timestamp of the quote.
func (q QuoteSnapshot) ReportTime() time.Time {
	return time.Unix(q.Timestamp, 0)
}

// FundamentalsSnapshot holds the slow changing 52 week range.
type FundamentalsSnapshot struct {
	YearLow      float64 `json:"52WeekLow"`
	YearLowDate  string  `json:"52WeekLowDate"`
	YearHigh     float64 `json:"52WeekHigh"`
	YearHighDate string  `json:"52WeekHighDate"`
}

type ConditionKind string

const (
	ConditionNone                  ConditionKind = ""
	ConditionBelowYearLow          ConditionKind = "below_year_low"
	ConditionAboveYearHigh         ConditionKind = "above_year_high"
	ConditionRisingAboveThreshold  ConditionKind = "rising_above_threshold"
	ConditionFallingAboveThreshold ConditionKind = "falling_above_threshold"
)

func (c ConditionKind) String() string {
	if c == ConditionNone {
		return "none"
	}
	return string(c)
}

// AlertEvent is created once when a condition becomes true and never changes.
type AlertEvent struct {
	ID        string        `json:"id"`
	Symbol    string        `json:"symbol"`
	Condition ConditionKind `json:"condition"`
	Message   string        `json:"message"`
	Value     float64       `json:"value"`
	Threshold float64       `json:"threshold"`
	FiredAt   time.Time     `json:"fired_at"`
}

// SymbolState is the latest known state of one symbol. It is owned by the
// symbol's poller; everybody else works on copies obtained through Clone.
type SymbolState struct {
	Symbol          Symbol               `json:"symbol"`
	Quote           QuoteSnapshot        `json:"quote"`
	Fundamentals    FundamentalsSnapshot `json:"fundamentals"`
	LastAlert       *AlertEvent          `json:"last_alert,omitempty"`
	LastAlertAt     time.Time            `json:"last_alert_at"`
	ActiveCondition ConditionKind        `json:"active_condition"`
	Reported        bool                 `json:"reported"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// HasData reports whether at least one poll succeeded.
func (s SymbolState) HasData() bool {
	return !s.UpdatedAt.IsZero()
}

// Value is the entity state: the current price, or empty before the first
// successful poll.
func (s SymbolState) Value() string {
	if !s.HasData() {
		return ""
	}
	return strconv.FormatFloat(s.Quote.Current, 'f', -1, 64)
}

// Clone returns a copy that shares no memory with s.
func (s SymbolState) Clone() SymbolState {
	out := s
	if s.LastAlert != nil {
		a := *s.LastAlert
		out.LastAlert = &a
	}
	return out
}

// Attributes is the typed attribute record exposed for every entity.
type Attributes struct {
	High              float64 `json:"high"`
	Low               float64 `json:"low"`
	Change            float64 `json:"change"`
	PercentChange     float64 `json:"percentChange"`
	Current           float64 `json:"current"`
	Open              float64 `json:"open"`
	PreviousClose     float64 `json:"previousClose"`
	Timestamp         int64   `json:"timestamp"`
	YearLow           float64 `json:"52WeekLow"`
	YearLowDate       string  `json:"52WeekLowDate"`
	YearHigh          float64 `json:"52WeekHigh"`
	YearHighDate      string  `json:"52WeekHighDate"`
	AlertInfo         *string `json:"alertInfo"`
	ReportTime        string  `json:"reportTime"`
	FriendlyName      string  `json:"friendly_name"`
	UnitOfMeasurement string  `json:"unit_of_measurement"`
	Icon              string  `json:"icon,omitempty"`
	Attribution       string  `json:"attribution"`
}

// AttributesOf flattens a state into its attribute record. AlertInfo is only
// set while the last alert's condition is still active.
func AttributesOf(s SymbolState) Attributes {
	a := Attributes{
		High:              s.Quote.High,
		Low:               s.Quote.Low,
		Change:            s.Quote.Change,
		PercentChange:     s.Quote.PercentChange,
		Current:           s.Quote.Current,
		Open:              s.Quote.Open,
		PreviousClose:     s.Quote.PreviousClose,
		Timestamp:         s.Quote.Timestamp,
		YearLow:           s.Fundamentals.YearLow,
		YearLowDate:       s.Fundamentals.YearLowDate,
		YearHigh:          s.Fundamentals.YearHigh,
		YearHighDate:      s.Fundamentals.YearHighDate,
		FriendlyName:      s.Symbol.Name(),
		UnitOfMeasurement: s.Symbol.Currency,
		Icon:              s.Symbol.Icon(),
		Attribution:       Attribution,
	}
	if s.Quote.Timestamp > 0 {
		a.ReportTime = s.Quote.ReportTime().Format("2006-01-02 15:04:05")
	}
	if s.LastAlert != nil && s.ActiveCondition != ConditionNone && s.LastAlert.Condition == s.ActiveCondition {
		msg := s.LastAlert.Message
		a.AlertInfo = &msg
	}
	return a
}
