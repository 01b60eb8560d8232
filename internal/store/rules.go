package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

const ruleColumns = "id, weather_type, kind, operator, threshold, unit, keyword, active, created_at"

// AddRule validates and inserts a rule, returning it with its assigned id
// and creation timestamp.
func (s *Store) AddRule(ctx context.Context, r domain.AlertRule) (domain.AlertRule, error) {
	if err := r.Validate(); err != nil {
		return domain.AlertRule{}, err
	}
	r.CreatedAt = s.clock.Now().UTC()

	res, err := s.exec(ctx,
		`INSERT INTO rules (weather_type, kind, operator, threshold, unit, keyword, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.WeatherType, r.Kind, r.Operator, r.Threshold, r.Unit, r.Keyword, r.Active, r.CreatedAt,
	)
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("insert rule: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("rule id: %w", err)
	}
	return r, nil
}

// UpdateRule validates and replaces the stored rule with the given id,
// returning the row as stored. The creation timestamp is preserved.
func (s *Store) UpdateRule(ctx context.Context, id int64, r domain.AlertRule) (domain.AlertRule, error) {
	if err := r.Validate(); err != nil {
		return domain.AlertRule{}, err
	}

	res, err := s.exec(ctx,
		`UPDATE rules SET weather_type = ?, kind = ?, operator = ?, threshold = ?, unit = ?, keyword = ?, active = ?
		 WHERE id = ?`,
		r.WeatherType, r.Kind, r.Operator, r.Threshold, r.Unit, r.Keyword, r.Active, id,
	)
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("update rule: %w", err)
	}
	if err := rowsAffected(res, fmt.Errorf("rule %d: %w", id, domain.ErrNotFound)); err != nil {
		return domain.AlertRule{}, err
	}
	return s.GetRule(ctx, id)
}

// GetRule returns the rule with the given id.
func (s *Store) GetRule(ctx context.Context, id int64) (domain.AlertRule, error) {
	rules, err := s.queryRules(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	if err != nil {
		return domain.AlertRule{}, err
	}
	if len(rules) == 0 {
		return domain.AlertRule{}, fmt.Errorf("rule %d: %w", id, domain.ErrNotFound)
	}
	return rules[0], nil
}

// RemoveRule deletes the rule with the given id.
func (s *Store) RemoveRule(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return rowsAffected(res, fmt.Errorf("rule %d: %w", id, domain.ErrNotFound))
}

// ListRules returns every rule, newest first.
func (s *Store) ListRules(ctx context.Context) ([]domain.AlertRule, error) {
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY id DESC`)
}

// ListActiveRules returns the rules the evaluator should run, oldest first so
// evaluation order is stable across cycles.
func (s *Store) ListActiveRules(ctx context.Context) ([]domain.AlertRule, error) {
	return s.queryRules(ctx, `SELECT `+ruleColumns+` FROM rules WHERE active = 1 ORDER BY id`)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]domain.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRule(rows *sql.Rows) (domain.AlertRule, error) {
	var r domain.AlertRule
	if err := rows.Scan(&r.ID, &r.WeatherType, &r.Kind, &r.Operator, &r.Threshold, &r.Unit, &r.Keyword, &r.Active, &r.CreatedAt); err != nil {
		return domain.AlertRule{}, fmt.Errorf("scan rule: %w", err)
	}
	return r, nil
}
