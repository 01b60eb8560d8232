package domain

import "time"

// Candidate identifies a would-be notification for duplicate detection.
// The forecast date is deliberately absent: forecast dates roll forward every
// day (and interval prediction shifts them), so keying on the date would let
// the same warning re-send daily.
type Candidate struct {
	RecipientID int64
	Region      string
	WeatherType WeatherType
}

// IsDuplicate reports whether existing already holds a non-rejected
// notification for the same recipient, region, and weather type created at
// or after windowStart. The detector is stateless; callers supply the
// candidate set (in-flight queue plus recent delivery history) and the
// window-start policy. An empty existing set is not an error — it simply
// yields false.
func IsDuplicate(c Candidate, existing []Notification, windowStart time.Time) bool {
	for _, n := range existing {
		if n.State == StateRejected {
			continue
		}
		if n.Recipient.ID != c.RecipientID {
			continue
		}
		if n.Match.Region != c.Region || n.Match.WeatherType != c.WeatherType {
			continue
		}
		if n.CreatedAt.Before(windowStart) {
			continue
		}
		return true
	}
	return false
}
