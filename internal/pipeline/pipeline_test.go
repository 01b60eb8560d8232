package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
	"github.com/couchcryptid/weather-alert-service/internal/observability"
	"github.com/couchcryptid/weather-alert-service/internal/pipeline"
	"github.com/couchcryptid/weather-alert-service/internal/queue"
)

type fakeSources struct {
	rules       []domain.AlertRule
	recipients  []domain.Recipient
	regions     []string
	settings    domain.Settings
	settingsErr error
	history     []domain.Notification
	historyErr  error
}

func (f *fakeSources) ListActiveRules(context.Context) ([]domain.AlertRule, error) {
	return f.rules, nil
}

func (f *fakeSources) ListRecipients(context.Context) ([]domain.Recipient, error) {
	return f.recipients, nil
}

func (f *fakeSources) Regions(context.Context) ([]string, error) {
	return f.regions, nil
}

func (f *fakeSources) GetSettings(context.Context) (domain.Settings, error) {
	if f.settingsErr != nil {
		return domain.Settings{}, f.settingsErr
	}
	return f.settings, nil
}

func (f *fakeSources) RecentNotifications(context.Context, time.Time) ([]domain.Notification, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

type fakeProvider struct {
	forecasts map[string][]domain.ForecastRecord
	errs      map[string]error
	calls     []string
}

func (f *fakeProvider) Forecast(_ context.Context, region string) ([]domain.ForecastRecord, error) {
	f.calls = append(f.calls, region)
	if err := f.errs[region]; err != nil {
		return nil, err
	}
	return f.forecasts[region], nil
}

type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []domain.Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, n)
}

// Fixed "today" for every pipeline test.
var testNow = time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC)

func day(offset int) string {
	return testNow.AddDate(0, 0, offset).Format(time.DateOnly)
}

func highTempRule() domain.AlertRule {
	return domain.AlertRule{
		ID:          1,
		WeatherType: domain.WeatherHighTemp,
		Kind:        domain.KindParameter,
		Operator:    domain.OpGTE,
		Threshold:   35,
		Unit:        "°C",
		Active:      true,
	}
}

func beijingEngineer() domain.Recipient {
	return domain.Recipient{
		ID:           7,
		Name:         "Wang Lei",
		Email:        "wang.lei@example.com",
		Region:       "beijing",
		Category:     domain.CategoryEngineer,
		WeatherTypes: []domain.WeatherType{domain.WeatherHighTemp},
	}
}

func hotForecast(region string, offset int, tempMax float64) domain.ForecastRecord {
	return domain.ForecastRecord{Region: region, Date: day(offset), TempMax: domain.Reading(tempMax), TempMin: domain.Reading(24)}
}

func newTestPipeline(t *testing.T, src *fakeSources, provider *fakeProvider) (*pipeline.Pipeline, *queue.Queue, *recordingDispatcher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(testNow)
	disp := &recordingDispatcher{}
	q := queue.New(disp, clock, logger)
	p := pipeline.New(src, src, provider, src, src, q, clock, logger, observability.NewMetricsForTesting())
	return p, q, disp
}

func TestRunCycle_EnqueuesMatches(t *testing.T) {
	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(),
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 0, 30), hotForecast("beijing", 1, 38)},
	}}
	p, q, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Regions)
	assert.Empty(t, report.SkippedRegions)
	assert.Equal(t, 1, report.Matches)
	assert.Equal(t, 1, report.Enqueued)
	assert.Equal(t, 0, report.Duplicates)

	pending := q.ListPending(queue.Filter{})
	require.Len(t, pending, 1)
	assert.Equal(t, day(1), pending[0].Match.Date)
	assert.Equal(t, "wang.lei@example.com", pending[0].Recipient.Email)
	assert.False(t, pending[0].DedupeTag)
}

func TestRunCycle_OnlyTargetDateEvaluated(t *testing.T) {
	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(), // one-day lead time
	}
	// Qualifying reading today only; the target date is tomorrow.
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 0, 40), hotForecast("beijing", 1, 30)},
	}}
	p, q, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Matches)
	assert.Empty(t, q.ListPending(queue.Filter{}))
}

func TestRunCycle_IntervalPredictionKeepsEarliest(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.IntervalPrediction = true
	settings.AdvanceDays = 3

	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   settings,
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {
			hotForecast("beijing", 0, 30),
			hotForecast("beijing", 1, 30),
			hotForecast("beijing", 2, 37),
			hotForecast("beijing", 3, 39),
		},
	}}
	p, q, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Matches)
	pending := q.ListPending(queue.Filter{})
	require.Len(t, pending, 1)
	assert.Equal(t, day(2), pending[0].Match.Date)
}

func TestRunCycle_SecondCycleTagsDuplicate(t *testing.T) {
	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(),
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 1, 38)},
	}}
	p, q, _ := newTestPipeline(t, src, provider)

	_, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Enqueued)
	assert.Equal(t, 1, report.Duplicates)

	dup := true
	tagged := q.ListPending(queue.Filter{Dedupe: &dup})
	require.Len(t, tagged, 1)
}

func TestRunCycle_SameCycleDuplicateAcrossRules(t *testing.T) {
	second := highTempRule()
	second.ID = 2
	second.Threshold = 37

	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule(), second},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(),
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 1, 38)},
	}}
	p, _, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	// Both rules fire for the same recipient, region, and weather type; the
	// second enqueue must see the first.
	assert.Equal(t, 2, report.Enqueued)
	assert.Equal(t, 1, report.Duplicates)
}

func TestRunCycle_HistoryTagsDuplicate(t *testing.T) {
	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(),
		history: []domain.Notification{{
			ID:        "past-1",
			Recipient: domain.Recipient{ID: 7},
			Match:     domain.Match{Region: "beijing", WeatherType: domain.WeatherHighTemp, Date: day(-2)},
			State:     domain.StateApproved,
			CreatedAt: testNow.Add(-48 * time.Hour),
		}},
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 1, 38)},
	}}
	p, _, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Enqueued)
	assert.Equal(t, 1, report.Duplicates)
}

func TestRunCycle_SkipsFailingRegion(t *testing.T) {
	tianjin := beijingEngineer()
	tianjin.ID = 8
	tianjin.Email = "li.na@example.com"
	tianjin.Region = "tianjin"

	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer(), tianjin},
		regions:    []string{"beijing", "tianjin"},
		settings:   domain.DefaultSettings(),
	}
	provider := &fakeProvider{
		forecasts: map[string][]domain.ForecastRecord{
			"tianjin": {hotForecast("tianjin", 1, 38)},
		},
		errs: map[string]error{"beijing": errors.New("upstream 502")},
	}
	p, q, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"beijing"}, report.SkippedRegions)
	assert.Equal(t, 1, report.Enqueued)
	pending := q.ListPending(queue.Filter{})
	require.Len(t, pending, 1)
	assert.Equal(t, "tianjin", pending[0].Match.Region)
}

func TestRunCycle_AutoApprovalDispatchesImmediately(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.AutoApproval = true

	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   settings,
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 1, 38)},
	}}
	p, q, disp := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Enqueued)
	assert.True(t, q.AutoApprove())
	assert.Empty(t, q.ListPending(queue.Filter{}))
	require.Len(t, disp.dispatched, 1)
	assert.Equal(t, domain.StateApproved, disp.dispatched[0].State)
}

func TestRunCycle_NoSubscriberNoNotification(t *testing.T) {
	rec := beijingEngineer()
	rec.WeatherTypes = []domain.WeatherType{domain.WeatherFog}

	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{rec},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(),
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 1, 38)},
	}}
	p, q, _ := newTestPipeline(t, src, provider)

	report, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Matches)
	assert.Equal(t, 0, report.Enqueued)
	assert.Empty(t, q.ListPending(queue.Filter{}))
}

func TestRunCycle_SettingsError(t *testing.T) {
	src := &fakeSources{settingsErr: errors.New("db locked")}
	p, _, _ := newTestPipeline(t, src, &fakeProvider{})

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings")
}

func TestRunCycle_HistoryError(t *testing.T) {
	src := &fakeSources{
		rules:      []domain.AlertRule{highTempRule()},
		recipients: []domain.Recipient{beijingEngineer()},
		regions:    []string{"beijing"},
		settings:   domain.DefaultSettings(),
		historyErr: errors.New("db locked"),
	}
	provider := &fakeProvider{forecasts: map[string][]domain.ForecastRecord{
		"beijing": {hotForecast("beijing", 1, 38)},
	}}
	p, _, _ := newTestPipeline(t, src, provider)

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
}

func TestCheckReadiness(t *testing.T) {
	src := &fakeSources{settings: domain.DefaultSettings()}
	p, _, _ := newTestPipeline(t, src, &fakeProvider{})

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.RunCycle(context.Background())
	require.NoError(t, err)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}
