// Package queue holds pending weather-alert notifications while they await
// human review, and owns their lifecycle.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// Dispatcher receives approved notifications. Delivery is fire-and-forget
// from the queue's perspective: the dispatcher records its own outcome and
// the queue does not retry or track it.
type Dispatcher interface {
	Dispatch(ctx context.Context, n domain.Notification)
}

// Filter narrows ListPending output. Zero-valued fields don't constrain;
// Dedupe, when non-nil, selects only tagged (true) or only untagged (false)
// notifications.
type Filter struct {
	Category    domain.Category
	Region      string
	WeatherType domain.WeatherType
	Dedupe      *bool
}

func (f Filter) matches(n domain.Notification) bool {
	if f.Category != "" && n.Recipient.Category != f.Category {
		return false
	}
	if f.Region != "" && n.Match.Region != f.Region {
		return false
	}
	if f.WeatherType != "" && n.Match.WeatherType != f.WeatherType {
		return false
	}
	if f.Dedupe != nil && n.DedupeTag != *f.Dedupe {
		return false
	}
	return true
}

// Queue is the in-memory notification queue. It exclusively owns
// Notification instances; callers only ever see copies. All methods are safe
// for concurrent use, though the evaluation pipeline is the only writer in
// practice.
type Queue struct {
	dispatcher Dispatcher
	clock      clockwork.Clock
	logger     *slog.Logger

	mu          sync.Mutex
	autoApprove bool
	byID        map[string]*domain.Notification
	order       []string // insertion order, for deterministic listings
}

// New creates an empty queue. Approved notifications are handed to the
// dispatcher; pass the clock the rest of the service uses so tests can
// freeze CreatedAt.
func New(dispatcher Dispatcher, clock clockwork.Clock, logger *slog.Logger) *Queue {
	return &Queue{
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
		byID:       make(map[string]*domain.Notification),
	}
}

// SetAutoApprove switches auto-approval mode. When enabled, Enqueue skips the
// pending state entirely: new notifications are created approved and emitted
// to the dispatcher immediately.
func (q *Queue) SetAutoApprove(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.autoApprove = on
}

// AutoApprove reports whether auto-approval mode is on.
func (q *Queue) AutoApprove() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.autoApprove
}

// Enqueue creates a notification for the (recipient, match) pair. In manual
// mode it starts pending; in auto-approval mode it is approved and dispatched
// before Enqueue returns.
func (q *Queue) Enqueue(ctx context.Context, rec domain.Recipient, m domain.Match, dedupeTag bool) (domain.Notification, error) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		Recipient: rec,
		Match:     m,
		DedupeTag: dedupeTag,
		State:     domain.StatePending,
		CreatedAt: q.clock.Now(),
	}

	q.mu.Lock()
	auto := q.autoApprove
	if auto {
		n.State = domain.StateApproved
	}
	stored := n
	q.byID[n.ID] = &stored
	q.order = append(q.order, n.ID)
	q.mu.Unlock()

	q.logger.Info("notification enqueued",
		"notification_id", n.ID,
		"recipient", n.Recipient.Email,
		"region", n.Match.Region,
		"weather_type", n.Match.WeatherType,
		"dedupe", n.DedupeTag,
		"auto_approved", auto,
	)

	if auto {
		q.dispatcher.Dispatch(ctx, n)
	}
	return n, nil
}

// Approve transitions a pending notification to approved and hands it to the
// dispatcher. Approving a terminal notification fails with ErrInvalidState.
func (q *Queue) Approve(ctx context.Context, id string) (domain.Notification, error) {
	n, err := q.transition(id, domain.StateApproved)
	if err != nil {
		return domain.Notification{}, err
	}
	q.logger.Info("notification approved", "notification_id", id, "recipient", n.Recipient.Email)
	q.dispatcher.Dispatch(ctx, n)
	return n, nil
}

// Reject transitions a pending notification to rejected. Rejected
// notifications are discarded: never dispatched, never counted by duplicate
// detection.
func (q *Queue) Reject(_ context.Context, id string) (domain.Notification, error) {
	n, err := q.transition(id, domain.StateRejected)
	if err != nil {
		return domain.Notification{}, err
	}
	q.logger.Info("notification rejected", "notification_id", id, "recipient", n.Recipient.Email)
	return n, nil
}

func (q *Queue) transition(id string, to domain.NotificationState) (domain.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, ok := q.byID[id]
	if !ok {
		return domain.Notification{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	if n.State != domain.StatePending {
		return domain.Notification{}, fmt.Errorf("notification %s is %s: %w", id, n.State, domain.ErrInvalidState)
	}
	n.State = to
	return *n, nil
}

// Get returns a copy of the notification with the given id.
func (q *Queue) Get(id string) (domain.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, ok := q.byID[id]
	if !ok {
		return domain.Notification{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return *n, nil
}

// ListPending returns pending notifications matching the filter, in insertion
// order. Pure read; never mutates queue state.
func (q *Queue) ListPending(f Filter) []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []domain.Notification
	for _, id := range q.order {
		n := q.byID[id]
		if n.State != domain.StatePending {
			continue
		}
		if !f.matches(*n) {
			continue
		}
		out = append(out, *n)
	}
	return out
}

// Snapshot returns copies of every notification regardless of state, in
// insertion order. Duplicate detection compares candidates against this set.
func (q *Queue) Snapshot() []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Notification, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.byID[id])
	}
	return out
}

// PruneTerminal drops approved and rejected notifications created before the
// cutoff and returns how many were removed. The evaluation pipeline calls
// this after each cycle with the dedup window start, so memory stays bounded
// without ever discarding a notification the detector still needs.
func (q *Queue) PruneTerminal(before time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.order[:0]
	removed := 0
	for _, id := range q.order {
		n := q.byID[id]
		if n.State.Terminal() && n.CreatedAt.Before(before) {
			delete(q.byID, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	return removed
}
