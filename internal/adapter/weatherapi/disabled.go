package weatherapi

import (
	"context"
	"errors"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// Disabled is the Provider used when no API key is configured. Every fetch
// fails, so evaluation cycles skip all regions instead of crashing.
type Disabled struct{}

func (Disabled) Forecast(context.Context, string) ([]domain.ForecastRecord, error) {
	return nil, errors.New("weather provider disabled: WEATHER_API_KEY not set")
}
