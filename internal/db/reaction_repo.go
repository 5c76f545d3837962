package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"snapcircle/internal/types"
)

// ReactionRepository provides data access for the photo_reactions table.
type ReactionRepository struct {
	db DBTX
}

// NewReactionRepository creates a ReactionRepository backed by the given
// connection.
func NewReactionRepository(db DBTX) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Create records that a user reacted to a photo. The reaction's event is
// derived from the photo so reacted-ID listings stay a single-table query.
func (r *ReactionRepository) Create(ctx context.Context, id, photoID, userID string, createdAt time.Time) (*types.PhotoReaction, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO photo_reactions (id, photo_id, event_id, created_by, created_at)
		 SELECT $1, p.id, p.event_id, $3, $4 FROM photos p WHERE p.id = $2
		 RETURNING id, photo_id, event_id, created_by, created_at`,
		id, photoID, userID, createdAt)

	var reaction types.PhotoReaction
	err := row.Scan(&reaction.ID, &reaction.PhotoID, &reaction.EventID, &reaction.CreatedBy, &reaction.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPhoto,
				fmt.Sprintf("photo %q does not exist", photoID), err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create reaction", err)
	}
	return &reaction, nil
}

// ListReactedPhotoIDs returns the IDs of photos the user has reacted to
// within the event.
func (r *ReactionRepository) ListReactedPhotoIDs(ctx context.Context, eventID, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT photo_id FROM photo_reactions
		 WHERE event_id = $1 AND created_by = $2`, eventID, userID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list reacted photo ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reaction", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating reactions", err)
	}
	return ids, nil
}

// ListForPhoto returns all reactions to one photo.
func (r *ReactionRepository) ListForPhoto(ctx context.Context, photoID string) ([]types.PhotoReaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, photo_id, event_id, created_by, created_at
		 FROM photo_reactions WHERE photo_id = $1
		 ORDER BY created_at DESC`, photoID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list photo reactions", err)
	}
	defer rows.Close()

	var reactions []types.PhotoReaction
	for rows.Next() {
		var reaction types.PhotoReaction
		if err := rows.Scan(&reaction.ID, &reaction.PhotoID, &reaction.EventID, &reaction.CreatedBy, &reaction.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan reaction", err)
		}
		reactions = append(reactions, reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating reactions", err)
	}
	return reactions, nil
}
