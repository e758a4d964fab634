package quote

import (
	"context"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCredentials means the API key was rejected. Polling the symbol
	// cannot succeed until the configuration changes.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownSymbol means the provider has no data for the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrTransientFetch covers network failures, timeouts, rate limiting and
	// server errors. The next scheduled poll retries.
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrInvalidSnapshot means the payload was malformed or incomplete.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Provider returns current market data for a single symbol.
//
//go:generate mockgen -package=price_test -destination=../price/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Quote(ctx context.Context, symbol string) (types.QuoteSnapshot, error)
	Fundamentals(ctx context.Context, symbol string) (types.FundamentalsSnapshot, error)
}

// Kind names the error class of err for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrInvalidSnapshot):
		return "invalid_snapshot"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "transient"
	}
}
