package alert

import (
	"finnhub-stock-bot/internal/quote"
	"finnhub-stock-bot/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"math"
	"time"
)

// Input is everything a single evaluation looks at.
type Input struct {
	Symbol       types.Symbol
	Quote        types.QuoteSnapshot
	Fundamentals types.FundamentalsSnapshot
	ObservedAt   time.Time
}

// Evaluate derives the next state of a symbol from its previous state and a
// fresh snapshot. Conditions are checked in priority order and only the first
// match counts. An alert is returned only when the matched condition was not
// already reported, so a condition that stays true fires once.
//
// Evaluate performs no I/O. On ErrInvalidSnapshot the previous state is
// returned unchanged.
func Evaluate(prev *types.SymbolState, in Input) (types.SymbolState, *types.AlertEvent, error) {
	if err := validate(in); err != nil {
		return previous(prev, in.Symbol), nil, err
	}

	next := carry(prev, in)
	if in.Quote.Current <= 0 {
		return next, nil, nil
	}

	kind, value, threshold := classify(in)
	if kind == types.ConditionNone {
		next.ActiveCondition = types.ConditionNone
		next.Reported = false
		return next, nil, nil
	}

	if next.Reported && next.ActiveCondition == kind {
		return next, nil, nil
	}

	event := types.AlertEvent{
		ID:        uuid.NewString(),
		Symbol:    in.Symbol.Ticker,
		Condition: kind,
		Message:   Message(in.Symbol, kind, value, threshold),
		Value:     value,
		Threshold: threshold,
		FiredAt:   in.ObservedAt,
	}
	stored := event
	next.LastAlert = &stored
	next.LastAlertAt = in.ObservedAt
	next.ActiveCondition = kind
	next.Reported = true

	return next, &event, nil
}

// Refresh stores the new snapshot without looking for conditions. The dedup
// state is carried over untouched.
func Refresh(prev *types.SymbolState, in Input) (types.SymbolState, error) {
	if err := validate(in); err != nil {
		return previous(prev, in.Symbol), err
	}
	return carry(prev, in), nil
}

func classify(in Input) (types.ConditionKind, float64, float64) {
	q, f, s := in.Quote, in.Fundamentals, in.Symbol

	if q.Current < f.YearLow {
		return types.ConditionBelowYearLow, q.Current, f.YearLow
	}
	if f.YearHigh > 0 && q.Current > f.YearHigh {
		return types.ConditionAboveYearHigh, q.Current, f.YearHigh
	}
	if q.Low > 0 && q.Current > q.Low {
		if pct := percent(q.Current-q.Low, q.Current); pct >= s.RisingThreshold {
			return types.ConditionRisingAboveThreshold, pct, s.RisingThreshold
		}
	}
	if q.High > 0 && q.Current < q.High {
		if pct := percent(q.High-q.Current, q.High); pct >= s.FallingThreshold {
			return types.ConditionFallingAboveThreshold, pct, s.FallingThreshold
		}
	}
	return types.ConditionNone, 0, 0
}

// percent is diff as a percentage of denominator. Callers guarantee a
// positive denominator.
func percent(diff, denominator float64) float64 {
	return diff / denominator * 100
}

func previous(prev *types.SymbolState, symbol types.Symbol) types.SymbolState {
	if prev == nil {
		return types.SymbolState{Symbol: symbol}
	}
	return prev.Clone()
}

func carry(prev *types.SymbolState, in Input) types.SymbolState {
	next := previous(prev, in.Symbol)
	next.Symbol = in.Symbol
	next.Quote = in.Quote
	next.Fundamentals = in.Fundamentals
	next.UpdatedAt = in.ObservedAt
	return next
}

func validate(in Input) error {
	q, f := in.Quote, in.Fundamentals
	fields := []struct {
		name  string
		value float64
		// current may be zero or negative, which marks the data as unusable
		// rather than malformed.
		signed bool
	}{
		{"current", q.Current, true},
		{"high", q.High, false},
		{"low", q.Low, false},
		{"open", q.Open, false},
		{"previousClose", q.PreviousClose, false},
		{"change", q.Change, true},
		{"percentChange", q.PercentChange, true},
		{"52WeekLow", f.YearLow, false},
		{"52WeekHigh", f.YearHigh, false},
	}
	for _, field := range fields {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return errors.Wrapf(quote.ErrInvalidSnapshot, "%s is not a finite number", field.name)
		}
		if !field.signed && field.value < 0 {
			return errors.Wrapf(quote.ErrInvalidSnapshot, "%s is negative: %v", field.name, field.value)
		}
	}
	if q.Timestamp < 0 {
		return errors.Wrapf(quote.ErrInvalidSnapshot, "timestamp is negative: %d", q.Timestamp)
	}
	if q.High > 0 && q.Low > q.High {
		return errors.Wrapf(quote.ErrInvalidSnapshot, "day low %v above day high %v", q.Low, q.High)
	}
	if f.YearHigh > 0 && f.YearLow > f.YearHigh {
		return errors.Wrapf(quote.ErrInvalidSnapshot, "52 week low %v above 52 week high %v", f.YearLow, f.YearHigh)
	}
	return nil
}
