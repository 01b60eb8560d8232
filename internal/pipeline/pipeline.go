// Package pipeline orchestrates one evaluation cycle: fetch forecasts for
// every watched region, run the active rules over them, resolve recipients,
// flag duplicates, and enqueue notifications.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
	"github.com/couchcryptid/weather-alert-service/internal/observability"
)

// RuleSource supplies the active alert rules, in stable order.
type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]domain.AlertRule, error)
}

// RecipientSource supplies the watched personnel and the distinct set of
// regions they live in.
type RecipientSource interface {
	ListRecipients(ctx context.Context) ([]domain.Recipient, error)
	Regions(ctx context.Context) ([]string, error)
}

// ForecastProvider fetches the multi-day forecast for one region.
type ForecastProvider interface {
	Forecast(ctx context.Context, region string) ([]domain.ForecastRecord, error)
}

// SettingsSource supplies the evaluation settings, re-read every cycle so
// operator changes take effect without a restart.
type SettingsSource interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

// HistorySource supplies past notifications inside the dedup window, so
// duplicate detection survives restarts.
type HistorySource interface {
	RecentNotifications(ctx context.Context, since time.Time) ([]domain.Notification, error)
}

// NotificationQueue is the pipeline's view of the approval queue.
type NotificationQueue interface {
	SetAutoApprove(on bool)
	Enqueue(ctx context.Context, rec domain.Recipient, m domain.Match, dedupeTag bool) (domain.Notification, error)
	Snapshot() []domain.Notification
	PruneTerminal(before time.Time) int
}

// ErrCycleInProgress is returned when a cycle is requested while another is
// still running.
var ErrCycleInProgress = errors.New("evaluation cycle already in progress")

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	Regions        int      `json:"regions"`
	SkippedRegions []string `json:"skipped_regions,omitempty"`
	Matches        int      `json:"matches"`
	Enqueued       int      `json:"enqueued"`
	Duplicates     int      `json:"duplicates"`
}

// Pipeline runs evaluation cycles. Safe for one caller at a time; the
// scheduler and the manual-check endpoint both serialize through runMu.
type Pipeline struct {
	rules      RuleSource
	recipients RecipientSource
	provider   ForecastProvider
	settings   SettingsSource
	history    HistorySource
	queue      NotificationQueue
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	runMu chan struct{} // 1-slot semaphore
	ready atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(rules RuleSource, recipients RecipientSource, provider ForecastProvider, settings SettingsSource, history HistorySource, queue NotificationQueue, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		rules:      rules,
		recipients: recipients,
		provider:   provider,
		settings:   settings,
		history:    history,
		queue:      queue,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		runMu:      make(chan struct{}, 1),
	}
}

// CheckReadiness returns nil once at least one cycle has completed, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no evaluation cycle has completed yet")
	}
	return nil
}

// RunCycle executes one full evaluation cycle. Concurrent calls fail fast
// rather than queueing, so a slow provider cannot stack cycles.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleReport, error) {
	select {
	case p.runMu <- struct{}{}:
		defer func() { <-p.runMu }()
	default:
		return CycleReport{}, ErrCycleInProgress
	}

	start := time.Now()
	report, err := p.cycle(ctx)
	if err != nil {
		return report, err
	}

	p.metrics.CyclesTotal.Inc()
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("evaluation cycle complete",
		"regions", report.Regions,
		"skipped", len(report.SkippedRegions),
		"matches", report.Matches,
		"enqueued", report.Enqueued,
		"duplicates", report.Duplicates,
		"duration", time.Since(start),
	)
	return report, nil
}

func (p *Pipeline) cycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	settings, err := p.settings.GetSettings(ctx)
	if err != nil {
		return report, fmt.Errorf("load settings: %w", err)
	}
	p.queue.SetAutoApprove(settings.AutoApproval)

	rules, err := p.rules.ListActiveRules(ctx)
	if err != nil {
		return report, fmt.Errorf("load rules: %w", err)
	}

	recipients, err := p.recipients.ListRecipients(ctx)
	if err != nil {
		return report, fmt.Errorf("load recipients: %w", err)
	}

	regions, err := p.recipients.Regions(ctx)
	if err != nil {
		return report, fmt.Errorf("load regions: %w", err)
	}
	report.Regions = len(regions)

	if len(rules) == 0 || len(regions) == 0 {
		p.logger.Info("nothing to evaluate", "rules", len(rules), "regions", len(regions))
		p.prune(settings)
		return report, nil
	}

	wanted := p.targetDates(settings)
	forecasts := p.collectForecasts(ctx, regions, wanted, &report)

	matches := domain.Evaluate(rules, forecasts)
	if settings.IntervalPrediction {
		matches = domain.CollapseToEarliest(matches)
	}
	report.Matches = len(matches)
	p.metrics.MatchesTotal.Add(float64(len(matches)))

	windowStart := p.clock.Now().Add(-settings.DedupWindow())
	existing := p.queue.Snapshot()
	history, err := p.history.RecentNotifications(ctx, windowStart)
	if err != nil {
		return report, fmt.Errorf("load notification history: %w", err)
	}
	existing = append(existing, history...)

	for _, m := range matches {
		for _, rec := range domain.Resolve(m, recipients) {
			cand := domain.Candidate{
				RecipientID: rec.ID,
				Region:      m.Region,
				WeatherType: m.WeatherType,
			}
			dup := domain.IsDuplicate(cand, existing, windowStart)

			n, err := p.queue.Enqueue(ctx, rec, m, dup)
			if err != nil {
				p.logger.Error("enqueue failed", "recipient", rec.Email, "region", m.Region, "error", err)
				continue
			}
			// Later matches in this same cycle must see this one.
			existing = append(existing, n)

			report.Enqueued++
			if dup {
				report.Duplicates++
			}
			p.metrics.NotificationsEnqueued.WithLabelValues(strconv.FormatBool(dup)).Inc()
		}
	}

	p.prune(settings)
	return report, nil
}

// collectForecasts fetches each region's forecast and keeps only the records
// on wanted dates. A region whose fetch fails is skipped, never fatal.
func (p *Pipeline) collectForecasts(ctx context.Context, regions []string, wanted map[string]bool, report *CycleReport) []domain.ForecastRecord {
	var out []domain.ForecastRecord
	for _, region := range regions {
		records, err := p.provider.Forecast(ctx, region)
		if err != nil {
			p.logger.Warn("forecast fetch failed, skipping region", "region", region, "error", err)
			p.metrics.ProviderRequests.WithLabelValues("error").Inc()
			p.metrics.RegionsSkipped.Inc()
			report.SkippedRegions = append(report.SkippedRegions, region)
			continue
		}
		p.metrics.ProviderRequests.WithLabelValues("success").Inc()

		for _, r := range records {
			if wanted[r.Date] {
				out = append(out, r)
			}
		}
	}
	return out
}

// targetDates returns the forecast dates this cycle evaluates. Normally that
// is the single date AdvanceDays ahead of today; in interval-prediction mode
// it is every date from today through the lead time, with the earliest match
// per rule and region kept afterwards.
func (p *Pipeline) targetDates(settings domain.Settings) map[string]bool {
	today := p.clock.Now().UTC()
	wanted := make(map[string]bool)
	if settings.IntervalPrediction {
		for d := 0; d <= settings.AdvanceDays; d++ {
			wanted[today.AddDate(0, 0, d).Format(time.DateOnly)] = true
		}
	} else {
		wanted[today.AddDate(0, 0, settings.AdvanceDays).Format(time.DateOnly)] = true
	}
	return wanted
}

// prune drops resolved notifications older than the dedup window and
// refreshes the pending-queue gauge.
func (p *Pipeline) prune(settings domain.Settings) {
	cutoff := p.clock.Now().Add(-settings.DedupWindow())
	if removed := p.queue.PruneTerminal(cutoff); removed > 0 {
		p.logger.Debug("pruned resolved notifications", "count", removed)
	}

	pending := 0
	for _, n := range p.queue.Snapshot() {
		if n.State == domain.StatePending {
			pending++
		}
	}
	p.metrics.QueuePending.Set(float64(pending))
}
