package domain

import "time"

// DispatchEvent is the audit record emitted after every dispatch attempt,
// including suppressed duplicates. It is the unit published to the audit
// topic when Kafka is configured.
type DispatchEvent struct {
	NotificationID string      `json:"notification_id"`
	RecipientID    int64       `json:"recipient_id"`
	RecipientEmail string      `json:"recipient_email"`
	Region         string      `json:"region"`
	WeatherType    WeatherType `json:"weather_type"`
	Date           string      `json:"date"`
	Status         string      `json:"status"`
	Detail         string      `json:"detail,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}
