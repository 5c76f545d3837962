// Package scheduler implements the pending-notification monitor: a
// self-rescheduling poll loop that scans events with outstanding notification
// obligations, evaluates them against the collaboration phase calculator, and
// hands due notifications to the push dispatcher.
//
// Key behaviors:
//   - One loop per process; ticks run strictly sequentially and never overlap.
//   - The reference instant advances by exactly the interval each tick,
//     decoupling evaluation instants from tick jitter.
//   - A pending entry is dropped once its condition fires, regardless of
//     dispatch outcome (at-most-once delivery).
//   - Per-event errors are logged and swallowed so one bad event never halts
//     the loop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"snapcircle/internal/events"
	"snapcircle/internal/types"
)

// DefaultInterval is the monitor cadence when none is configured.
const DefaultInterval = 10 * time.Second

// EventStore abstracts the event repository operations the monitor needs.
type EventStore interface {
	// FindWithPendingNotifications returns every event whose pending queue is
	// non-empty.
	FindWithPendingNotifications(ctx context.Context) ([]*types.PhotoEvent, error)
	// OverwritePendingNotifications replaces the event's persisted pending
	// list. The monitor is the sole writer of this field in steady state.
	OverwritePendingNotifications(ctx context.Context, eventID string, pending []types.PendingPushNotification) error
}

// GroupNotifier dispatches one logical notification to a group. Satisfied by
// the push.Dispatcher.
type GroupNotifier interface {
	NotifyGroup(ctx context.Context, groupID string, n types.PushNotification) error
}

// MonitorConfig holds the dependencies and tuning for a Monitor.
type MonitorConfig struct {
	Events   EventStore
	Notifier GroupNotifier
	Cache    *events.Cache
	Interval time.Duration
	Logger   *slog.Logger
}

// Monitor is the pending-notification scheduler.
type Monitor struct {
	store    EventStore
	notifier GroupNotifier
	cache    *events.Cache
	interval time.Duration
	logger   *slog.Logger

	// lastTick is the reference instant of the previous tick; zero before the
	// first tick.
	lastTick time.Time
}

// NewMonitor creates a Monitor with the given configuration.
func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		store:    cfg.Events,
		notifier: cfg.Notifier,
		cache:    cfg.Cache,
		interval: interval,
		logger:   logger,
	}
}

// Run executes the monitor loop until the context is cancelled. The first
// tick runs immediately; each subsequent tick is scheduled one interval after
// the previous one completes, so no two ticks ever run concurrently.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			m.Tick(ctx)
			timer.Reset(m.interval)
		}
	}
}

// Tick evaluates every event with outstanding notifications against the
// current reference instant. Exported so composition roots and tests can
// drive the loop manually.
func (m *Monitor) Tick(ctx context.Context) {
	now := m.referenceInstant()

	pending, err := m.store.FindWithPendingNotifications(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "scanning events with pending notifications failed",
			"error", err,
		)
		m.lastTick = now
		return
	}

	if len(pending) > 0 {
		m.logger.DebugContext(ctx, "found events with pending push notifications",
			"count", len(pending),
			"reference_instant", now.Format(time.RFC3339),
		)
	}

	for _, event := range pending {
		if err := m.processEvent(ctx, event, now); err != nil {
			// One bad event must never halt the loop.
			m.logger.ErrorContext(ctx, "processing event notifications failed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}

	m.lastTick = now
}

// referenceInstant computes this tick's evaluation instant: the previous
// instant advanced by exactly the interval, giving drift-free, monotonically
// spaced instants regardless of tick jitter. The first tick samples the wall
// clock.
func (m *Monitor) referenceInstant() time.Time {
	if m.lastTick.IsZero() {
		return time.Now()
	}
	return m.lastTick.Add(m.interval)
}

// processEvent evaluates each pending entry under the phase snapshot for this
// tick, dispatches the due ones, and persists exactly the still-pending
// entries. The cache entry is refreshed in the same step so readers never see
// a stale pending list.
func (m *Monitor) processEvent(ctx context.Context, event *types.PhotoEvent, now time.Time) error {
	phase := events.PhaseOf(event, now)
	stillPending := make([]types.PendingPushNotification, 0, len(event.PendingPushNotifications))

	for _, entry := range event.PendingPushNotifications {
		if !m.due(entry.Kind, phase) {
			stillPending = append(stillPending, entry)
			continue
		}

		// The entry is dropped whether or not dispatch succeeds.
		if err := m.notifier.NotifyGroup(ctx, event.GroupID, m.notification(event, entry.Kind)); err != nil {
			m.logger.ErrorContext(ctx, "push dispatch failed",
				"event_id", event.ID,
				"kind", string(entry.Kind),
				"error", err,
			)
		} else {
			m.logger.InfoContext(ctx, "push notification dispatched",
				"event_id", event.ID,
				"kind", string(entry.Kind),
			)
		}
	}

	if err := m.store.OverwritePendingNotifications(ctx, event.ID, stillPending); err != nil {
		return fmt.Errorf("overwriting pending notifications: %w", err)
	}

	event.PendingPushNotifications = stillPending
	m.cache.Add(event)

	return nil
}

// due reports whether the entry's trigger condition holds under the phase
// snapshot. Unrecognized kinds are never due: they stay pending forever.
func (m *Monitor) due(kind types.NotificationKind, phase events.Phase) bool {
	switch kind {
	case types.KindContributionStarting:
		return phase.InContribution || phase.AfterContribution
	case types.KindReactionStarting:
		return phase.InReaction || phase.AfterReaction
	default:
		return false
	}
}

// notification builds the group push payload for a due entry.
func (m *Monitor) notification(event *types.PhotoEvent, kind types.NotificationKind) types.PushNotification {
	n := types.PushNotification{
		Params: map[string]string{
			"notificationType": string(kind),
			"photoEventId":     event.ID,
			"photoEventTitle":  event.Name,
		},
	}

	switch kind {
	case types.KindContributionStarting:
		n.Title = fmt.Sprintf("%s is starting, add your photos now!", event.Name)
		n.Message = "Add your photo"
	case types.KindReactionStarting:
		n.Title = fmt.Sprintf("%s is ready for your reaction", event.Name)
		n.Message = "Add your reaction to other photos"
	}

	return n
}
