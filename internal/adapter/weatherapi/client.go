// Package weatherapi fetches per-region daily forecasts from the weather
// provider's HTTP API and normalizes them into domain records.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// Provider supplies forecast records for a region. A failed fetch means "no
// forecast available for that region this cycle"; the caller skips the region
// and carries on.
type Provider interface {
	Forecast(ctx context.Context, region string) ([]domain.ForecastRecord, error)
}

// Client implements Provider against the provider's 7-day daily forecast
// endpoint.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a forecast API client.
func NewClient(baseURL, key string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Forecast fetches the 7-day daily forecast for a region.
func (c *Client) Forecast(ctx context.Context, region string) ([]domain.ForecastRecord, error) {
	params := url.Values{
		"location": {region},
		"key":      {c.key},
	}
	fullURL := c.baseURL + "/weather/7d?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request for %s: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("weather API error for %s: status %d: %s", region, resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	if apiResp.Code != "200" {
		return nil, fmt.Errorf("weather API error for %s: code %s", region, apiResp.Code)
	}
	if len(apiResp.Daily) == 0 {
		return nil, fmt.Errorf("no forecast available for %s", region)
	}

	records := make([]domain.ForecastRecord, 0, len(apiResp.Daily))
	for _, d := range apiResp.Daily {
		records = append(records, domain.ForecastRecord{
			Region:     region,
			Date:       d.FxDate,
			TempMax:    parseFloat(d.TempMax),
			TempMin:    parseFloat(d.TempMin),
			WindSpeed:  parseFloat(d.WindSpeedDay),
			Precip:     parseFloat(d.Precip),
			Visibility: parseFloat(d.Vis),
			TextDay:    d.TextDay,
			TextNight:  d.TextNight,
		})
	}
	return records, nil
}

// parseFloat parses a string reading as float64. The provider serializes
// every reading as a string, occasionally blank; a blank or unparseable
// reading yields nil so that downstream rule checks treat it as absent
// rather than as zero.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Provider API response types. All readings arrive as strings.

type response struct {
	Code  string     `json:"code"`
	Daily []dailyRow `json:"daily"`
}

type dailyRow struct {
	FxDate       string `json:"fxDate"`
	TempMax      string `json:"tempMax"`
	TempMin      string `json:"tempMin"`
	WindSpeedDay string `json:"windSpeedDay"`
	Precip       string `json:"precip"`
	Vis          string `json:"vis"`
	TextDay      string `json:"textDay"`
	TextNight    string `json:"textNight"`
}
