package database

import (
	"context"
	"encoding/json"
	"finnhub-stock-bot/internal/types"
	"github.com/pkg/errors"
	"time"
)

// HistoryRecord is one recorded state of an entity.
type HistoryRecord struct {
	Timestamp  time.Time       `json:"timestamp"`
	State      string          `json:"state"`
	Attributes json.RawMessage `json:"attributes"`
}

// Record appends a published state to the entity's history.
func (s *Store) Record(ctx context.Context, state types.SymbolState) error {
	attributes, err := json.Marshal(types.AttributesOf(state))
	if err != nil {
		return errors.Wrap(err, "failed to encode attributes")
	}

	recordedAt := state.UpdatedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	query := `
	INSERT INTO states (entity_id, symbol, state, attributes, recorded_at)
	VALUES (?, ?, ?, ?, ?);`
	_, err = s.db.ExecContext(ctx, query,
		state.Symbol.EntityID(), state.Symbol.Ticker, state.Value(), string(attributes), recordedAt.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "failed to record state of %s", state.Symbol.Ticker)
	}
	return nil
}

// History returns the states of entityID recorded in [from, to], oldest first.
func (s *Store) History(ctx context.Context, entityID string, from, to time.Time) ([]HistoryRecord, error) {
	query := `
	SELECT state, attributes, recorded_at
	FROM states
	WHERE entity_id = ? AND recorded_at >= ? AND recorded_at <= ?
	ORDER BY recorded_at ASC, id ASC;`

	rows, err := s.db.QueryContext(ctx, query, entityID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query history of %s", entityID)
	}
	defer rows.Close()

	history := []HistoryRecord{}
	for rows.Next() {
		var (
			record     HistoryRecord
			attributes string
			recordedAt int64
		)
		if err := rows.Scan(&record.State, &attributes, &recordedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		record.Attributes = json.RawMessage(attributes)
		record.Timestamp = time.UnixMilli(recordedAt).UTC()
		history = append(history, record)
	}
	return history, errors.Wrap(rows.Err(), "failed to read history")
}
