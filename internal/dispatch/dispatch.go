// Package dispatch delivers approved notifications: it renders the matching
// email template, sends the message, and records the outcome in the delivery
// log. Duplicate-tagged notifications are recorded as suppressed without
// being sent.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	texttemplate "text/template"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
	"github.com/couchcryptid/weather-alert-service/internal/observability"
	"github.com/couchcryptid/weather-alert-service/internal/store"
)

// Sender delivers one rendered message to a single address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TemplateFinder selects the best stored template for a weather type and
// recipient category. It returns domain.ErrNotFound when nothing matches.
type TemplateFinder interface {
	FindTemplate(ctx context.Context, w domain.WeatherType, c domain.Category) (domain.Template, error)
}

// Recorder appends dispatch outcomes to the delivery log.
type Recorder interface {
	RecordDispatch(ctx context.Context, e store.LogEntry) error
}

// AuditWriter publishes dispatch events to an external audit trail.
type AuditWriter interface {
	WriteDispatch(ctx context.Context, event domain.DispatchEvent) error
}

// Dispatcher implements queue.Dispatcher. Delivery failures are recorded,
// not returned: the queue treats dispatch as fire-and-forget and the log is
// the source of truth for outcomes.
type Dispatcher struct {
	sender    Sender
	templates TemplateFinder
	recorder  Recorder
	audit     AuditWriter // nil when no audit trail is configured
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New wires a dispatcher. audit may be nil.
func New(sender Sender, templates TemplateFinder, recorder Recorder, audit AuditWriter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		templates: templates,
		recorder:  recorder,
		audit:     audit,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Dispatch handles one approved notification end to end.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) {
	if n.DedupeTag {
		d.finish(ctx, n, store.StatusSuppressed, "duplicate within dedup window")
		return
	}

	subject, body, err := render(d.lookupTemplate(ctx, n), n)
	if err != nil {
		d.logger.Warn("template render failed, using default", "notification_id", n.ID, "error", err)
		subject, body, err = render(defaultTemplate(), n)
	}
	if err != nil {
		d.finish(ctx, n, store.StatusFailed, fmt.Sprintf("render: %v", err))
		return
	}

	if err := d.sender.Send(ctx, n.Recipient.Email, subject, body); err != nil {
		d.finish(ctx, n, store.StatusFailed, err.Error())
		return
	}
	d.finish(ctx, n, store.StatusSent, "")
}

func (d *Dispatcher) lookupTemplate(ctx context.Context, n domain.Notification) domain.Template {
	tpl, err := d.templates.FindTemplate(ctx, n.Match.WeatherType, n.Recipient.Category)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("template lookup failed, using default", "notification_id", n.ID, "error", err)
		}
		return defaultTemplate()
	}
	return tpl
}

func (d *Dispatcher) finish(ctx context.Context, n domain.Notification, status, detail string) {
	now := d.clock.Now().UTC()

	entry := store.LogEntry{
		CreatedAt:      now,
		NotificationID: n.ID,
		RecipientID:    n.Recipient.ID,
		RecipientEmail: n.Recipient.Email,
		Region:         n.Match.Region,
		WeatherType:    n.Match.WeatherType,
		Status:         status,
		Detail:         detail,
	}
	if err := d.recorder.RecordDispatch(ctx, entry); err != nil {
		d.logger.Error("record dispatch failed", "notification_id", n.ID, "error", err)
	}

	d.metrics.DispatchTotal.WithLabelValues(status).Inc()

	if d.audit != nil {
		event := domain.DispatchEvent{
			NotificationID: n.ID,
			RecipientID:    n.Recipient.ID,
			RecipientEmail: n.Recipient.Email,
			Region:         n.Match.Region,
			WeatherType:    n.Match.WeatherType,
			Date:           n.Match.Date,
			Status:         status,
			Detail:         detail,
			OccurredAt:     now,
		}
		if err := d.audit.WriteDispatch(ctx, event); err != nil {
			d.logger.Error("audit write failed", "notification_id", n.ID, "error", err)
		}
	}

	switch status {
	case store.StatusFailed:
		d.logger.Error("dispatch failed", "notification_id", n.ID, "recipient", n.Recipient.Email, "detail", detail)
	case store.StatusSuppressed:
		d.logger.Info("dispatch suppressed", "notification_id", n.ID, "recipient", n.Recipient.Email)
	default:
		d.logger.Info("dispatch sent", "notification_id", n.ID, "recipient", n.Recipient.Email)
	}
}

// templateData is the variable set available to subject and body templates.
type templateData struct {
	Name        string
	Region      string
	WeatherType string
	Date        string
	Condition   string
}

// render executes the template's subject and body against the notification.
// Subjects render as plain text; bodies as HTML with contextual escaping.
func render(tpl domain.Template, n domain.Notification) (subject, body string, err error) {
	data := templateData{
		Name:        n.Recipient.Name,
		Region:      n.Match.Region,
		WeatherType: string(n.Match.WeatherType),
		Date:        n.Match.Date,
		Condition:   n.Match.Summary,
	}

	st, err := texttemplate.New("subject").Parse(tpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("parse subject: %w", err)
	}
	var sb bytes.Buffer
	if err := st.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}

	bt, err := template.New("body").Parse(tpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse body: %w", err)
	}
	var bb bytes.Buffer
	if err := bt.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}

	return sb.String(), bb.String(), nil
}

// defaultTemplate is the built-in fallback used when no stored template
// matches or a stored template fails to render.
func defaultTemplate() domain.Template {
	return domain.Template{
		Name:       "builtin-default",
		TargetRole: "all",
		Subject:    "Weather alert for {{.Region}}: {{.Condition}}",
		Body: `<p>Hello {{.Name}},</p>
<p>A weather alert has been issued for {{.Region}} on {{.Date}}:</p>
<p><strong>{{.Condition}}</strong></p>
<p>Please take the necessary precautions.</p>`,
		Active: true,
	}
}
