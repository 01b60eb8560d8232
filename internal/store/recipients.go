package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// AddRecipient validates and inserts a recipient, returning it with its
// assigned id.
func (s *Store) AddRecipient(ctx context.Context, r domain.Recipient) (domain.Recipient, error) {
	if err := r.Validate(); err != nil {
		return domain.Recipient{}, err
	}
	subs, err := marshalWeatherTypes(r.WeatherTypes)
	if err != nil {
		return domain.Recipient{}, err
	}

	res, err := s.exec(ctx,
		`INSERT INTO recipients (name, email, region, category, weather_types) VALUES (?, ?, ?, ?, ?)`,
		r.Name, r.Email, r.Region, r.Category, subs,
	)
	if err != nil {
		return domain.Recipient{}, fmt.Errorf("insert recipient: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Recipient{}, fmt.Errorf("recipient id: %w", err)
	}
	return r, nil
}

// UpdateRecipient validates and replaces the stored recipient, returning the
// row as stored.
func (s *Store) UpdateRecipient(ctx context.Context, id int64, r domain.Recipient) (domain.Recipient, error) {
	if err := r.Validate(); err != nil {
		return domain.Recipient{}, err
	}
	subs, err := marshalWeatherTypes(r.WeatherTypes)
	if err != nil {
		return domain.Recipient{}, err
	}

	res, err := s.exec(ctx,
		`UPDATE recipients SET name = ?, email = ?, region = ?, category = ?, weather_types = ? WHERE id = ?`,
		r.Name, r.Email, r.Region, r.Category, subs, id,
	)
	if err != nil {
		return domain.Recipient{}, fmt.Errorf("update recipient: %w", err)
	}
	if err := rowsAffected(res, fmt.Errorf("recipient %d: %w", id, domain.ErrNotFound)); err != nil {
		return domain.Recipient{}, err
	}
	r.ID = id
	if r.WeatherTypes == nil {
		r.WeatherTypes = []domain.WeatherType{}
	}
	return r, nil
}

// RemoveRecipient deletes the recipient with the given id.
func (s *Store) RemoveRecipient(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM recipients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("recipient %d: %w", id, domain.ErrNotFound))
}

// ListRecipients returns every recipient in id order.
func (s *Store) ListRecipients(ctx context.Context) ([]domain.Recipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, region, category, weather_types FROM recipients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Regions returns the distinct regions recipients live in — the set of
// regions each evaluation cycle fetches forecasts for.
func (s *Store) Regions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT region FROM recipients ORDER BY region`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var region string
		if err := rows.Scan(&region); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, region)
	}
	return out, rows.Err()
}

func scanRecipient(rows *sql.Rows) (domain.Recipient, error) {
	var r domain.Recipient
	var subs string
	if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Region, &r.Category, &subs); err != nil {
		return domain.Recipient{}, fmt.Errorf("scan recipient: %w", err)
	}
	if err := json.Unmarshal([]byte(subs), &r.WeatherTypes); err != nil {
		return domain.Recipient{}, fmt.Errorf("decode weather types for recipient %d: %w", r.ID, err)
	}
	return r, nil
}

func marshalWeatherTypes(types []domain.WeatherType) (string, error) {
	if types == nil {
		types = []domain.WeatherType{}
	}
	data, err := json.Marshal(types)
	if err != nil {
		return "", fmt.Errorf("encode weather types: %w", err)
	}
	return string(data), nil
}
