package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

const templateColumns = "id, name, weather_type, target_role, subject, body, active"

// AddTemplate validates and inserts a template.
func (s *Store) AddTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	if err := t.Validate(); err != nil {
		return domain.Template{}, err
	}

	res, err := s.exec(ctx,
		`INSERT INTO templates (name, weather_type, target_role, subject, body, active) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Name, t.WeatherType, t.TargetRole, t.Subject, t.Body, t.Active,
	)
	if err != nil {
		return domain.Template{}, fmt.Errorf("insert template: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Template{}, fmt.Errorf("template id: %w", err)
	}
	return t, nil
}

// UpdateTemplate validates and replaces the stored template, returning the
// row as stored.
func (s *Store) UpdateTemplate(ctx context.Context, id int64, t domain.Template) (domain.Template, error) {
	if err := t.Validate(); err != nil {
		return domain.Template{}, err
	}

	res, err := s.exec(ctx,
		`UPDATE templates SET name = ?, weather_type = ?, target_role = ?, subject = ?, body = ?, active = ? WHERE id = ?`,
		t.Name, t.WeatherType, t.TargetRole, t.Subject, t.Body, t.Active, id,
	)
	if err != nil {
		return domain.Template{}, fmt.Errorf("update template: %w", err)
	}
	if err := rowsAffected(res, fmt.Errorf("template %d: %w", id, domain.ErrNotFound)); err != nil {
		return domain.Template{}, err
	}
	t.ID = id
	return t, nil
}

// RemoveTemplate deletes the template with the given id.
func (s *Store) RemoveTemplate(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("template %d: %w", id, domain.ErrNotFound))
}

// ListTemplates returns every template in id order.
func (s *Store) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		var t domain.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.WeatherType, &t.TargetRole, &t.Subject, &t.Body, &t.Active); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindTemplate returns the best active template for a weather type and
// recipient category. A template scoped to the exact weather type beats an
// any-type template, and an exact target role beats "all". ErrNotFound means
// the caller should fall back to the built-in default.
func (s *Store) FindTemplate(ctx context.Context, w domain.WeatherType, category domain.Category) (domain.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates
		 WHERE active = 1
		   AND (weather_type = ? OR weather_type = '')
		   AND (target_role = ? OR target_role = 'all')
		 ORDER BY (weather_type = ?) DESC, (target_role = ?) DESC, id
		 LIMIT 1`,
		w, category, w, category,
	)

	var t domain.Template
	err := row.Scan(&t.ID, &t.Name, &t.WeatherType, &t.TargetRole, &t.Subject, &t.Body, &t.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, fmt.Errorf("template for %s/%s: %w", w, category, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("find template: %w", err)
	}
	return t, nil
}
