package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// GetSettings returns the stored settings, or the defaults when no operator
// has saved any yet.
func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT auto_approval, advance_days, interval_prediction, dedup_window_hours FROM settings WHERE id = 1`)

	var out domain.Settings
	err := row.Scan(&out.AutoApproval, &out.AdvanceDays, &out.IntervalPrediction, &out.DedupWindowHours)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	return out, nil
}

// SaveSettings validates and upserts the single settings row.
func (s *Store) SaveSettings(ctx context.Context, set domain.Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}

	_, err := s.exec(ctx,
		`INSERT INTO settings (id, auto_approval, advance_days, interval_prediction, dedup_window_hours)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			auto_approval = excluded.auto_approval,
			advance_days = excluded.advance_days,
			interval_prediction = excluded.interval_prediction,
			dedup_window_hours = excluded.dedup_window_hours`,
		set.AutoApproval, set.AdvanceDays, set.IntervalPrediction, set.DedupWindowHours,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
