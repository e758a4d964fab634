package database

import (
	"context"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

// Publish saves a fired alert so it can be listed later.
func (s *Store) Publish(ctx context.Context, alert types.AlertEvent) error {
	query := `
	INSERT INTO alerts (id, symbol, condition, message, value, threshold, fired_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);`

	_, err := s.db.ExecContext(ctx, query, alert.ID, alert.Symbol, string(alert.Condition), alert.Message,
		alert.Value, alert.Threshold, alert.FiredAt.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "failed to insert alert")
	}

	log.Debugf("Alert inserted successfully: ID: %s, Symbol: %s, Condition: %s", alert.ID, alert.Symbol, alert.Condition)
	return nil
}

// ListAlerts returns the most recent alerts, newest first. An empty symbol
// lists every symbol.
func (s *Store) ListAlerts(ctx context.Context, symbol string, limit int) ([]types.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, symbol, condition, message, value, threshold, fired_at
	FROM alerts
	WHERE (? = '' OR symbol = ?)
	ORDER BY fired_at DESC
	LIMIT ?;`

	rows, err := s.db.QueryContext(ctx, query, symbol, symbol, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query alerts")
	}
	defer rows.Close()

	alerts := []types.AlertEvent{}
	for rows.Next() {
		var (
			alert     types.AlertEvent
			condition string
			firedAt   int64
		)
		if err := rows.Scan(&alert.ID, &alert.Symbol, &condition, &alert.Message, &alert.Value, &alert.Threshold, &firedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		alert.Condition = types.ConditionKind(condition)
		alert.FiredAt = time.UnixMilli(firedAt).UTC()
		alerts = append(alerts, alert)
	}
	return alerts, errors.Wrap(rows.Err(), "failed to read alerts")
}
