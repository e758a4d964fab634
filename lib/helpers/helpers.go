package helpers

import (
	"fmt"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"strings"
	"time"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// FormatPriceUS renders a stock price with thousands separators. Prices below
// one dollar keep four decimals.
func FormatPriceUS(price float64) string {
	decimals := 2
	if price != 0 && price < 1 && price > -1 {
		decimals = 4
	}

	p := message.NewPrinter(language.English)
	return p.Sprintf("%.*f", decimals, price)
}

// FormatPercent renders a percentage with two decimals and no sign for
// positive values.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f", pct)
}

// FormatAge describes how long ago t was, relative to now.
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
