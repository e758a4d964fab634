package database

import (
	"encoding/json"
	"finnhub-stock-bot/internal/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SaveMetrics upserts every counter sample.
func (s *Store) SaveMetrics(samples []metrics.Sample) error {
	query := `
	INSERT OR REPLACE INTO metrics (metric_name, labels, metric_value)
	VALUES (?, ?, ?);`

	for _, sample := range samples {
		labels, err := json.Marshal(sample.Labels)
		if err != nil {
			return errors.Wrapf(err, "failed to encode labels of %s", sample.Name)
		}
		if _, err := s.db.Exec(query, sample.Name, string(labels), sample.Value); err != nil {
			return errors.Wrap(err, "failed to save metric")
		}
	}
	log.Debugf("Saved %d metric samples", len(samples))
	return nil
}

// LoadMetrics returns every persisted counter sample.
func (s *Store) LoadMetrics() ([]metrics.Sample, error) {
	rows, err := s.db.Query(`SELECT metric_name, labels, metric_value FROM metrics;`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metrics")
	}
	defer rows.Close()

	var samples []metrics.Sample
	for rows.Next() {
		var (
			sample metrics.Sample
			labels string
		)
		if err := rows.Scan(&sample.Name, &labels, &sample.Value); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		if err := json.Unmarshal([]byte(labels), &sample.Labels); err != nil {
			log.Warnf("Skipping metric %s with unreadable labels %q: %v", sample.Name, labels, err)
			continue
		}
		samples = append(samples, sample)
	}
	return samples, errors.Wrap(rows.Err(), "failed to read metrics")
}
