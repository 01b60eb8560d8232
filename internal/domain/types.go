package domain

import (
	"time"
)

// WeatherType is a weather phenomenon category an alert rule is scoped to.
type WeatherType string

const (
	WeatherHighTemp       WeatherType = "high-temp"
	WeatherLowTemp        WeatherType = "low-temp"
	WeatherExtremeLowTemp WeatherType = "extreme-low-temp"
	WeatherWind           WeatherType = "wind"
	WeatherFog            WeatherType = "fog"
	WeatherRain           WeatherType = "rain"
	WeatherThunder        WeatherType = "thunder"
	WeatherTyphoon        WeatherType = "typhoon"
	WeatherOther          WeatherType = "other"
)

// WeatherTypes lists every known weather type, in display order.
var WeatherTypes = []WeatherType{
	WeatherHighTemp, WeatherLowTemp, WeatherExtremeLowTemp,
	WeatherWind, WeatherFog, WeatherRain,
	WeatherThunder, WeatherTyphoon, WeatherOther,
}

// Valid reports whether w is a known weather type.
func (w WeatherType) Valid() bool {
	for _, known := range WeatherTypes {
		if w == known {
			return true
		}
	}
	return false
}

// RuleKind distinguishes threshold rules from narrative keyword rules.
type RuleKind string

const (
	KindParameter RuleKind = "parameter"
	KindText      RuleKind = "text"
)

// Operator is a threshold comparison direction for parameter rules.
type Operator string

const (
	OpGTE Operator = ">="
	OpLTE Operator = "<="
)

// AlertRule defines one alerting condition. Exactly one condition
// representation is populated: Operator/Threshold/Unit for parameter rules,
// Keyword for text rules.
type AlertRule struct {
	ID          int64       `json:"id"`
	WeatherType WeatherType `json:"weather_type"`
	Kind        RuleKind    `json:"kind"`
	Operator    Operator    `json:"operator,omitempty"`
	Threshold   float64     `json:"threshold,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Keyword     string      `json:"keyword,omitempty"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ForecastRecord is one region's forecast for a single calendar date, as
// normalized from the weather provider. Dates use the YYYY-MM-DD form so they
// compare and sort lexicographically. Numeric readings are nil when the
// provider omitted the value or sent one that does not parse; a nil reading
// never satisfies a parameter rule.
type ForecastRecord struct {
	Region     string   `json:"region"`
	Date       string   `json:"date"`
	TempMax    *float64 `json:"temp_max"`
	TempMin    *float64 `json:"temp_min"`
	WindSpeed  *float64 `json:"wind_speed"`
	Precip     *float64 `json:"precip"`
	Visibility *float64 `json:"visibility"`
	TextDay    string   `json:"text_day"`
	TextNight  string   `json:"text_night"`
}

// Reading wraps a forecast value for a ForecastRecord field.
func Reading(v float64) *float64 { return &v }

// Match records that a rule fired for a region on a date. Immutable once
// produced by Evaluate.
type Match struct {
	RuleID      int64       `json:"rule_id"`
	Region      string      `json:"region"`
	Date        string      `json:"date"`
	WeatherType WeatherType `json:"weather_type"`
	Summary     string      `json:"summary"`
}

// Category separates watched personnel into customers and engineers.
type Category string

const (
	CategoryCustomer Category = "customer"
	CategoryEngineer Category = "engineer"
)

// Recipient is a person who can receive weather-alert notifications.
// A recipient only ever receives notifications for their own region and for
// weather types in their subscription set.
type Recipient struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Region       string        `json:"region"`
	Category     Category      `json:"category"`
	WeatherTypes []WeatherType `json:"weather_types"`
}

// SubscribedTo reports whether the recipient subscribes to the weather type.
func (r Recipient) SubscribedTo(w WeatherType) bool {
	for _, t := range r.WeatherTypes {
		if t == w {
			return true
		}
	}
	return false
}

// NotificationState is a stage in the notification lifecycle.
type NotificationState string

const (
	StatePending  NotificationState = "pending"
	StateApproved NotificationState = "approved"
	StateRejected NotificationState = "rejected"
)

// Terminal reports whether no further transition is defined from s.
func (s NotificationState) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// Notification is one (recipient, match) pair awaiting approval or already
// resolved. DedupeTag marks it as a repeat of an earlier notification inside
// the dedup window.
type Notification struct {
	ID        string            `json:"id"`
	Recipient Recipient         `json:"recipient"`
	Match     Match             `json:"match"`
	DedupeTag bool              `json:"dedupe_tag"`
	State     NotificationState `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
}

// Template is an email message template. An empty WeatherType means the
// template applies to every weather type; TargetRole narrows it to one
// recipient category ("all", "customer", or "engineer").
type Template struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	WeatherType WeatherType `json:"weather_type,omitempty"`
	TargetRole  string      `json:"target_role"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	Active      bool        `json:"active"`
}

// Settings are the operator-tunable evaluation knobs, persisted alongside the
// other stores and re-read at the start of every cycle.
type Settings struct {
	AutoApproval       bool `json:"auto_approval"`
	AdvanceDays        int  `json:"advance_days"`
	IntervalPrediction bool `json:"interval_prediction"`
	DedupWindowHours   int  `json:"dedup_window_hours"`
}

// DefaultSettings returns the settings used before an operator saves any:
// manual approval, one-day lead time, no interval prediction, one-week
// dedup window.
func DefaultSettings() Settings {
	return Settings{
		AutoApproval:       false,
		AdvanceDays:        1,
		IntervalPrediction: false,
		DedupWindowHours:   168,
	}
}

// DedupWindow returns the configured window as a duration.
func (s Settings) DedupWindow() time.Duration {
	return time.Duration(s.DedupWindowHours) * time.Hour
}
