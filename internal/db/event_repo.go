package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"snapcircle/internal/types"
)

const eventColumns = `id, name, group_id, created_by, peer_content_access,
	contribution_starts_at, contribution_ends_at,
	reaction_starts_at, reaction_ends_at,
	starts_at, ends_at, pending_push_notifications, created_at, updated_at`

// EventRepository provides data access for the photo_events table. The
// pending-notification queue is stored as a JSONB array; the monitor is its
// sole writer in steady state.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates an EventRepository backed by the given
// connection (pool or transaction).
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new photo event. The caller is responsible for the derived
// StartsAt/EndsAt fields and the initial pending-notification queue.
func (r *EventRepository) Create(ctx context.Context, event *types.PhotoEvent) error {
	pending, err := json.Marshal(event.PendingPushNotifications)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode pending notifications", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO photo_events
		 (id, name, group_id, created_by, peer_content_access,
		  contribution_starts_at, contribution_ends_at,
		  reaction_starts_at, reaction_ends_at,
		  starts_at, ends_at, pending_push_notifications, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		event.ID, event.Name, event.GroupID, event.CreatedBy, string(event.PeerContentAccess),
		event.ContributionStartsAt, event.ContributionEndsAt,
		event.ReactionStartsAt, event.ReactionEndsAt,
		event.StartsAt, event.EndsAt, pending, event.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create photo event", err)
	}
	return nil
}

// Get retrieves an event by ID.
func (r *EventRepository) Get(ctx context.Context, id string) (*types.PhotoEvent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM photo_events WHERE id = $1`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundEvent,
				fmt.Sprintf("photo event %q does not exist", id), err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get photo event", err)
	}
	return event, nil
}

// FindWithPendingNotifications returns every event whose pending-notification
// queue is non-empty.
func (r *EventRepository) FindWithPendingNotifications(ctx context.Context) ([]*types.PhotoEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM photo_events
		 WHERE jsonb_array_length(pending_push_notifications) >= 1`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan for pending notifications", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// OverwritePendingNotifications replaces the event's persisted pending list
// with exactly the given entries.
func (r *EventRepository) OverwritePendingNotifications(ctx context.Context, eventID string, pending []types.PendingPushNotification) error {
	if pending == nil {
		pending = []types.PendingPushNotification{}
	}
	encoded, err := json.Marshal(pending)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode pending notifications", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE photo_events
		 SET pending_push_notifications = $1, updated_at = NOW()
		 WHERE id = $2`,
		encoded, eventID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to overwrite pending notifications", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent,
			fmt.Sprintf("photo event %q does not exist", eventID), nil)
	}
	return nil
}

// ListActiveForGroups returns events of the given groups whose overall window
// contains the instant, soonest-starting first.
func (r *EventRepository) ListActiveForGroups(ctx context.Context, groupIDs []string, now time.Time) ([]*types.PhotoEvent, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM photo_events
		 WHERE group_id = ANY($1) AND starts_at <= $2 AND ends_at >= $2
		 ORDER BY starts_at ASC
		 LIMIT 200`,
		groupIDs, now)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list active events", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListRecentForGroups returns events of the given groups, excluding the given
// IDs, most recently ending first.
func (r *EventRepository) ListRecentForGroups(ctx context.Context, groupIDs, excludeIDs []string, limit int) ([]*types.PhotoEvent, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM photo_events
		 WHERE group_id = ANY($1) AND id <> ALL($2)
		 ORDER BY ends_at DESC
		 LIMIT $3`,
		groupIDs, excludeIDs, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list recent events", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func scanEvent(row pgx.Row) (*types.PhotoEvent, error) {
	var event types.PhotoEvent
	var access string
	var pending []byte

	err := row.Scan(
		&event.ID, &event.Name, &event.GroupID, &event.CreatedBy, &access,
		&event.ContributionStartsAt, &event.ContributionEndsAt,
		&event.ReactionStartsAt, &event.ReactionEndsAt,
		&event.StartsAt, &event.EndsAt, &pending,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.PeerContentAccess = types.PeerContentAccess(access)
	if len(pending) > 0 {
		if err := json.Unmarshal(pending, &event.PendingPushNotifications); err != nil {
			return nil, fmt.Errorf("decoding pending notifications: %w", err)
		}
	}
	return &event, nil
}

func collectEvents(rows pgx.Rows) ([]*types.PhotoEvent, error) {
	var results []*types.PhotoEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan photo event", err)
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating photo events", err)
	}
	return results, nil
}
