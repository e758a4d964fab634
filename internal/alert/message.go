package alert

import (
	"finnhub-stock-bot/internal/types"
	"finnhub-stock-bot/lib/helpers"
	"finnhub-stock-bot/lib/translation"
	"strconv"
)

// Message formats the human readable text of an alert. It always names the
// symbol, the condition and the value that triggered it.
func Message(symbol types.Symbol, kind types.ConditionKind, value, threshold float64) string {
	name, ticker := symbol.Name(), symbol.Ticker

	switch kind {
	case types.ConditionBelowYearLow:
		return translation.Translate("%s (%s) is below 52 week low: %s < %s",
			name, ticker, helpers.FormatPriceUS(value), helpers.FormatPriceUS(threshold))
	case types.ConditionAboveYearHigh:
		return translation.Translate("%s (%s) is above 52 week high: %s > %s",
			name, ticker, helpers.FormatPriceUS(value), helpers.FormatPriceUS(threshold))
	case types.ConditionRisingAboveThreshold:
		return translation.Translate("%s (%s) is rising above %s%%: up %s%% from day low",
			name, ticker, formatThreshold(threshold), helpers.FormatPercent(value))
	case types.ConditionFallingAboveThreshold:
		return translation.Translate("%s (%s) is falling above %s%%: down %s%% from day high",
			name, ticker, formatThreshold(threshold), helpers.FormatPercent(value))
	default:
		return ""
	}
}

func formatThreshold(threshold float64) string {
	return strconv.FormatFloat(threshold, 'f', -1, 64)
}
