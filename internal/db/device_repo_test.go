package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapcircle/internal/types"
)

// Note: mockDBTX and mockRow are defined in event_repo_test.go and reused
// here.

// deviceMockRows implements pgx.Rows for the devices SELECT column list:
// (id, token, platform, user_id string, created_at time.Time).
type deviceMockRows struct {
	data    []deviceRowData
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

type deviceRowData struct {
	id        string
	token     string
	platform  string
	userID    string
	createdAt time.Time
}

func (r *deviceMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *deviceMockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.token
	*dest[2].(*string) = row.platform
	*dest[3].(*string) = row.userID
	*dest[4].(*time.Time) = row.createdAt
	return nil
}

func (r *deviceMockRows) Close()                                       { r.closed = true }
func (r *deviceMockRows) Err() error                                   { return r.errVal }
func (r *deviceMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *deviceMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *deviceMockRows) RawValues() [][]byte                          { return nil }
func (r *deviceMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *deviceMockRows) Conn() *pgx.Conn                              { return nil }

// --- DeviceRepository Tests ---

func TestDeviceRepository_Create_ReturnsUpsertedRow(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeviceRepository(db)

	now := time.Now().UTC()
	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "dev_existing"
			*dest[1].(*string) = "tok_abc"
			*dest[2].(*string) = "ios"
			*dest[3].(*string) = "usr_1"
			*dest[4].(*time.Time) = now
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	created, err := repo.Create(context.Background(), &types.Device{
		ID:        "dev_fresh",
		Token:     "tok_abc",
		Platform:  types.PlatformIOS,
		UserID:    "usr_1",
		CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "dev_existing", created.ID)
	assert.Equal(t, types.PlatformIOS, created.Platform)
}

func TestDeviceRepository_Create_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeviceRepository(db)

	row := &mockRow{scanErr: errors.New("connection refused")}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.Create(context.Background(), &types.Device{ID: "dev_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestDeviceRepository_FindByGroupMembers(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeviceRepository(db)

	rows := &deviceMockRows{
		idx: -1,
		data: []deviceRowData{
			{id: "dev_1", token: "tok_1", platform: "ios", userID: "usr_1"},
			{id: "dev_2", token: "tok_2", platform: "android", userID: "usr_2"},
		},
	}
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	devices, err := repo.FindByGroupMembers(context.Background(), "grp_1")
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, types.PlatformIOS, devices[0].Platform)
	assert.Equal(t, types.PlatformAndroid, devices[1].Platform)
}

func TestDeviceRepository_Unregister_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeviceRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := repo.Unregister(context.Background(), "tok_abc")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestDeviceRepository_BulkUnregister_EmptyTokensSkipsQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeviceRepository(db)

	err := repo.BulkUnregister(context.Background(), nil)
	require.NoError(t, err)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeviceRepository_BulkUnregister_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeviceRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.BulkUnregister(context.Background(), []string{"tok_1", "tok_2"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
