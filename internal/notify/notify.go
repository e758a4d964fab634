package notify

import (
	"context"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"strings"
)

// Publisher delivers fired alerts somewhere.
//
//go:generate mockgen -package=price_test -destination=../price/mock_publisher_test.go -source=notify.go Publisher
type Publisher interface {
	Publish(ctx context.Context, alert types.AlertEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, alert types.AlertEvent) error

func (f PublisherFunc) Publish(ctx context.Context, alert types.AlertEvent) error {
	return f(ctx, alert)
}

// Multi publishes to every publisher, even when earlier ones fail.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, alert types.AlertEvent) error {
	var failed []string
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, alert); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return errors.Errorf("%d of %d publishers failed: %s", len(failed), len(m), strings.Join(failed, "; "))
	}
	return nil
}

// Log writes alerts to the application log.
type Log struct{}

func (Log) Publish(_ context.Context, alert types.AlertEvent) error {
	log.WithFields(log.Fields{
		"id":        alert.ID,
		"symbol":    alert.Symbol,
		"condition": alert.Condition.String(),
		"value":     alert.Value,
		"threshold": alert.Threshold,
	}).Info(alert.Message)
	return nil
}
