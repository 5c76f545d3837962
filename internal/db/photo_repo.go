package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"snapcircle/internal/events"
	"snapcircle/internal/types"
)

const photoColumns = `id, event_id, created_by, image_url, thumbnails, annotations, created_at`

// PhotoRepository provides data access for the photos table. It implements
// both the access-scope listing the feed uses and the eligibility queries the
// sampler builds.
type PhotoRepository struct {
	db DBTX
}

// NewPhotoRepository creates a PhotoRepository backed by the given connection.
func NewPhotoRepository(db DBTX) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a new photo record.
func (r *PhotoRepository) Create(ctx context.Context, photo *types.Photo) error {
	thumbnails, err := json.Marshal(photo.Thumbnails)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode thumbnails", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO photos (id, event_id, created_by, image_url, thumbnails, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		photo.ID, photo.EventID, photo.CreatedBy, photo.ImageURL, thumbnails, photo.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create photo", err)
	}
	return nil
}

// Get retrieves a photo by ID.
func (r *PhotoRepository) Get(ctx context.Context, id string) (*types.Photo, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)

	photo, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPhoto,
				fmt.Sprintf("photo %q does not exist", id), err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get photo", err)
	}
	return photo, nil
}

// ListForScope returns the photos visible under the access scope,
// most-recent-first with pagination, plus the total count for the scope.
func (r *PhotoRepository) ListForScope(ctx context.Context, scope events.PhotoScope, limit, offset int) ([]types.Photo, int, error) {
	where := "event_id = $1"
	args := []any{scope.EventID}
	if scope.CreatorID != "" {
		args = append(args, scope.CreatorID)
		where += fmt.Sprintf(" AND created_by = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count photos", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, types.NewAppError(types.ErrCodeInternalDB, "failed to list photos", err)
	}
	defer rows.Close()

	photos, err := collectPhotos(rows)
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

// ListEligible runs a sampler eligibility query, most-recent-first.
func (r *PhotoRepository) ListEligible(ctx context.Context, q events.PhotoQuery) ([]types.Photo, error) {
	where, args := eligibilityFilter(q)

	sql := `SELECT ` + photoColumns + ` FROM photos WHERE ` + where + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list eligible photos", err)
	}
	defer rows.Close()

	return collectPhotos(rows)
}

// CountEligible counts the photos matching a sampler eligibility query,
// ignoring its limit.
func (r *PhotoRepository) CountEligible(ctx context.Context, q events.PhotoQuery) (int, error) {
	where, args := eligibilityFilter(q)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE `+where, args...).Scan(&count); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count eligible photos", err)
	}
	return count, nil
}

// UpdateAnnotations replaces the annotation answers of a photo owned by the
// given user and returns the updated record.
func (r *PhotoRepository) UpdateAnnotations(ctx context.Context, photoID, userID string, answers []types.AnnotationAnswer) (*types.Photo, error) {
	if answers == nil {
		answers = []types.AnnotationAnswer{}
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode annotations", err)
	}

	row := r.db.QueryRow(ctx,
		`UPDATE photos SET annotations = $1 WHERE id = $2 AND created_by = $3
		 RETURNING `+photoColumns,
		encoded, photoID, userID)

	photo, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPhoto,
				"photo does not exist or user is not the creator", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to update annotations", err)
	}
	return photo, nil
}

// UpdateThumbnails replaces a photo's thumbnail set.
func (r *PhotoRepository) UpdateThumbnails(ctx context.Context, photoID string, thumbnails []types.Thumbnail) error {
	encoded, err := json.Marshal(thumbnails)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode thumbnails", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE photos SET thumbnails = $1 WHERE id = $2`, encoded, photoID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update thumbnails", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPhoto,
			fmt.Sprintf("photo %q does not exist", photoID), nil)
	}
	return nil
}

// Destroy deletes a photo owned by the given user, along with its reactions.
func (r *PhotoRepository) Destroy(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM photos WHERE id = $1 AND created_by = $2`, id, userID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete photo", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPhoto,
			"photo does not exist or user is not the creator", nil)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM photo_reactions WHERE photo_id = $1`, id); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete photo reactions", err)
	}
	return nil
}

// eligibilityFilter translates a sampler PhotoQuery into a WHERE clause and
// its arguments.
func eligibilityFilter(q events.PhotoQuery) (string, []any) {
	where := []string{"event_id = $1"}
	args := []any{q.EventID}

	if q.NotCreatedBy != "" {
		args = append(args, q.NotCreatedBy)
		where = append(where, fmt.Sprintf("created_by <> $%d", len(args)))
	}
	if len(q.CreatedByAny) > 0 {
		args = append(args, q.CreatedByAny)
		where = append(where, fmt.Sprintf("created_by = ANY($%d)", len(args)))
	}
	if len(q.ExcludeIDs) > 0 {
		args = append(args, q.ExcludeIDs)
		where = append(where, fmt.Sprintf("id <> ALL($%d)", len(args)))
	}

	return strings.Join(where, " AND "), args
}

func scanPhoto(row pgx.Row) (*types.Photo, error) {
	var photo types.Photo
	var thumbnails, annotations []byte

	if err := row.Scan(&photo.ID, &photo.EventID, &photo.CreatedBy, &photo.ImageURL, &thumbnails, &annotations, &photo.CreatedAt); err != nil {
		return nil, err
	}
	if len(thumbnails) > 0 {
		if err := json.Unmarshal(thumbnails, &photo.Thumbnails); err != nil {
			return nil, fmt.Errorf("decoding thumbnails: %w", err)
		}
	}
	if len(annotations) > 0 {
		if err := json.Unmarshal(annotations, &photo.Annotations); err != nil {
			return nil, fmt.Errorf("decoding annotations: %w", err)
		}
	}
	return &photo, nil
}

func collectPhotos(rows pgx.Rows) ([]types.Photo, error) {
	var results []types.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan photo", err)
		}
		results = append(results, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating photos", err)
	}
	return results, nil
}
