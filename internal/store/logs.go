package store

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// Delivery log statuses.
const (
	StatusSent       = "sent"
	StatusFailed     = "failed"
	StatusSuppressed = "suppressed" // duplicate recorded but not re-sent
)

// LogEntry is one row of the delivery log: the recorded outcome of a single
// dispatch attempt.
type LogEntry struct {
	ID             int64              `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	NotificationID string             `json:"notification_id"`
	RecipientID    int64              `json:"recipient_id"`
	RecipientEmail string             `json:"recipient_email"`
	Region         string             `json:"region"`
	WeatherType    domain.WeatherType `json:"weather_type"`
	Status         string             `json:"status"`
	Detail         string             `json:"detail,omitempty"`
}

// RecordDispatch appends a delivery-log entry, stamping CreatedAt if unset.
func (s *Store) RecordDispatch(ctx context.Context, e LogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO delivery_log (created_at, notification_id, recipient_id, recipient_email, region, weather_type, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt, e.NotificationID, e.RecipientID, e.RecipientEmail, e.Region, e.WeatherType, e.Status, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

// ListLog returns the most recent delivery-log entries, newest first.
func (s *Store) ListLog(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, notification_id, recipient_id, recipient_email, region, weather_type, status, detail
		 FROM delivery_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query delivery log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.NotificationID, &e.RecipientID, &e.RecipientEmail, &e.Region, &e.WeatherType, &e.Status, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentNotifications converts delivery-log entries at or after since into
// notification records for duplicate detection, so the dedup window survives
// restarts. Only sent and suppressed entries count; failed sends never block
// a retry on the next cycle.
func (s *Store) RecentNotifications(ctx context.Context, since time.Time) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, notification_id, recipient_id, region, weather_type
		 FROM delivery_log
		 WHERE created_at >= ? AND status IN (?, ?)
		 ORDER BY id`, since, StatusSent, StatusSuppressed)
	if err != nil {
		return nil, fmt.Errorf("query recent notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.CreatedAt, &n.ID, &n.Recipient.ID, &n.Match.Region, &n.Match.WeatherType); err != nil {
			return nil, fmt.Errorf("scan recent notification: %w", err)
		}
		n.State = domain.StateApproved
		out = append(out, n)
	}
	return out, rows.Err()
}
