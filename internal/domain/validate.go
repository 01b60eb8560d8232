package domain

import (
	"fmt"
	"strings"
)

// Validate checks a recipient record before it enters the personnel store.
func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.Contains(r.Email, "@") {
		return ValidationError{Field: "email", Reason: "must be an email address"}
	}
	if strings.TrimSpace(r.Region) == "" {
		return ValidationError{Field: "region", Reason: "must not be empty"}
	}
	if r.Category != CategoryCustomer && r.Category != CategoryEngineer {
		return ValidationError{Field: "category", Reason: fmt.Sprintf("must be %q or %q", CategoryCustomer, CategoryEngineer)}
	}
	for _, w := range r.WeatherTypes {
		if !w.Valid() {
			return ValidationError{Field: "weather_types", Reason: fmt.Sprintf("unknown weather type %q", string(w))}
		}
	}
	return nil
}

// Validate checks a message template before it is stored.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if t.WeatherType != "" && !t.WeatherType.Valid() {
		return ValidationError{Field: "weather_type", Reason: fmt.Sprintf("unknown weather type %q", string(t.WeatherType))}
	}
	switch t.TargetRole {
	case "all", string(CategoryCustomer), string(CategoryEngineer):
	default:
		return ValidationError{Field: "target_role", Reason: `must be "all", "customer", or "engineer"`}
	}
	if strings.TrimSpace(t.Subject) == "" {
		return ValidationError{Field: "subject", Reason: "must not be empty"}
	}
	if strings.TrimSpace(t.Body) == "" {
		return ValidationError{Field: "body", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks operator-supplied settings.
func (s Settings) Validate() error {
	if s.AdvanceDays < 0 || s.AdvanceDays > 7 {
		return ValidationError{Field: "advance_days", Reason: "must be between 0 and 7 (provider forecasts cover 7 days)"}
	}
	if s.DedupWindowHours <= 0 {
		return ValidationError{Field: "dedup_window_hours", Reason: "must be positive"}
	}
	return nil
}
