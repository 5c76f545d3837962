package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapcircle/internal/events"
	"snapcircle/internal/types"
)

// Note: mockDBTX and mockRow are defined in event_repo_test.go and reused
// here.

// photoMockRows implements pgx.Rows for the photos SELECT column list:
// (id, event_id, created_by, image_url string, thumbnails []byte,
// annotations []byte, created_at time.Time).
type photoMockRows struct {
	data    []photoRowData
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

type photoRowData struct {
	id          string
	eventID     string
	createdBy   string
	imageURL    string
	thumbnails  []byte
	annotations []byte
	createdAt   time.Time
}

func (r *photoMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *photoMockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.eventID
	*dest[2].(*string) = row.createdBy
	*dest[3].(*string) = row.imageURL
	*dest[4].(*[]byte) = row.thumbnails
	*dest[5].(*[]byte) = row.annotations
	*dest[6].(*time.Time) = row.createdAt
	return nil
}

func (r *photoMockRows) Close()                                       { r.closed = true }
func (r *photoMockRows) Err() error                                   { return r.errVal }
func (r *photoMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *photoMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *photoMockRows) RawValues() [][]byte                          { return nil }
func (r *photoMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *photoMockRows) Conn() *pgx.Conn                              { return nil }

// --- PhotoRepository Tests ---

func TestEligibilityFilter_ArgumentIndexing(t *testing.T) {
	tests := []struct {
		name      string
		query     events.PhotoQuery
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "event only",
			query:     events.PhotoQuery{EventID: "pev_1"},
			wantWhere: "event_id = $1",
			wantArgs:  []any{"pev_1"},
		},
		{
			name:      "excluding creator",
			query:     events.PhotoQuery{EventID: "pev_1", NotCreatedBy: "usr_1"},
			wantWhere: "event_id = $1 AND created_by <> $2",
			wantArgs:  []any{"pev_1", "usr_1"},
		},
		{
			name:      "narrowed to creators",
			query:     events.PhotoQuery{EventID: "pev_1", CreatedByAny: []string{"usr_2", "usr_3"}},
			wantWhere: "event_id = $1 AND created_by = ANY($2)",
			wantArgs:  []any{"pev_1", []string{"usr_2", "usr_3"}},
		},
		{
			name:      "excluding photo ids",
			query:     events.PhotoQuery{EventID: "pev_1", ExcludeIDs: []string{"pho_1"}},
			wantWhere: "event_id = $1 AND id <> ALL($2)",
			wantArgs:  []any{"pev_1", []string{"pho_1"}},
		},
		{
			name: "all clauses shift indexes",
			query: events.PhotoQuery{
				EventID:      "pev_1",
				NotCreatedBy: "usr_1",
				CreatedByAny: []string{"usr_2"},
				ExcludeIDs:   []string{"pho_1", "pho_2"},
			},
			wantWhere: "event_id = $1 AND created_by <> $2 AND created_by = ANY($3) AND id <> ALL($4)",
			wantArgs:  []any{"pev_1", "usr_1", []string{"usr_2"}, []string{"pho_1", "pho_2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := eligibilityFilter(tt.query)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestPhotoRepository_ListEligible_AppendsLimit(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	rows := &photoMockRows{
		idx: -1,
		data: []photoRowData{
			{id: "pho_1", eventID: "pev_1", createdBy: "usr_2", imageURL: "https://cdn/pho_1.jpg"},
		},
	}

	var capturedSQL string
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			capturedSQL = args.Get(1).(string)
			sqlArgs := args.Get(2).([]any)
			require.Len(t, sqlArgs, 3)
			assert.Equal(t, 10, sqlArgs[2])
		}).
		Return(rows, nil)

	photos, err := repo.ListEligible(context.Background(), events.PhotoQuery{
		EventID:      "pev_1",
		NotCreatedBy: "usr_1",
		Limit:        10,
	})
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "pho_1", photos[0].ID)
	assert.Contains(t, capturedSQL, "LIMIT $3")
}

func TestPhotoRepository_CountEligible_IgnoresLimit(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*int) = 7
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			sqlArgs := args.Get(2).([]any)
			assert.Equal(t, []any{"pev_1"}, sqlArgs)
		}).
		Return(row)

	count, err := repo.CountEligible(context.Background(), events.PhotoQuery{EventID: "pev_1", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	db.AssertExpectations(t)
}

func TestPhotoRepository_Get_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.Get(context.Background(), "pho_nonexistent")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPhoto, appErr.Code)
}

func TestPhotoRepository_UpdateAnnotations_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	answers := []types.AnnotationAnswer{{Prompt: "Where was this?", Answer: "On the ridge"}}
	encoded, _ := json.Marshal(answers)

	now := time.Now().UTC()
	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "pho_1"
			*dest[1].(*string) = "pev_1"
			*dest[2].(*string) = "usr_1"
			*dest[3].(*string) = "https://cdn/pho_1.jpg"
			*dest[4].(*[]byte) = nil
			*dest[5].(*[]byte) = encoded
			*dest[6].(*time.Time) = now
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			sqlArgs := args.Get(2).([]any)
			require.Len(t, sqlArgs, 3)
			assert.JSONEq(t, string(encoded), string(sqlArgs[0].([]byte)))
			assert.Equal(t, "pho_1", sqlArgs[1])
			assert.Equal(t, "usr_1", sqlArgs[2])
		}).
		Return(row)

	photo, err := repo.UpdateAnnotations(context.Background(), "pho_1", "usr_1", answers)
	require.NoError(t, err)
	require.Len(t, photo.Annotations, 1)
	assert.Equal(t, "On the ridge", photo.Annotations[0].Answer)
	db.AssertExpectations(t)
}

func TestPhotoRepository_UpdateAnnotations_NotCreator(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.UpdateAnnotations(context.Background(), "pho_1", "usr_2", nil)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPhoto, appErr.Code)
}

func TestPhotoRepository_UpdateThumbnails_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.UpdateThumbnails(context.Background(), "pho_gone", []types.Thumbnail{
		{Width: 256, Height: 256, URL: "https://cdn/pho_gone_256.jpg"},
	})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPhoto, appErr.Code)
}

func TestPhotoRepository_Destroy_DeletesReactions(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	var deletes []string
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			deletes = append(deletes, args.Get(1).(string))
		}).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := repo.Destroy(context.Background(), "pho_1", "usr_1")
	require.NoError(t, err)
	require.Len(t, deletes, 2)
	assert.Contains(t, deletes[0], "DELETE FROM photos")
	assert.Contains(t, deletes[1], "DELETE FROM photo_reactions")
}

func TestPhotoRepository_Destroy_NotCreator(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPhotoRepository(db)

	var execCount int
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(mock.Arguments) { execCount++ }).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	err := repo.Destroy(context.Background(), "pho_1", "usr_2")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPhoto, appErr.Code)
	assert.Equal(t, 1, execCount)
}
