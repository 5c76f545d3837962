package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"snapcircle/internal/types"
)

// DeviceRepository provides data access for the devices table. Devices are
// created idempotently per (token, user) and removed when the push provider
// reports their token as permanently invalid.
type DeviceRepository struct {
	db DBTX
}

// NewDeviceRepository creates a DeviceRepository backed by the given
// connection.
func NewDeviceRepository(db DBTX) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create registers a device. Registering the same (token, user) pair again
// returns the existing record.
func (r *DeviceRepository) Create(ctx context.Context, device *types.Device) (*types.Device, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO devices (id, token, platform, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token, user_id)
		 DO UPDATE SET platform = EXCLUDED.platform
		 RETURNING id, token, platform, user_id, created_at`,
		device.ID, device.Token, string(device.Platform), device.UserID, device.CreatedAt,
	)

	var created types.Device
	var platform string
	if err := row.Scan(&created.ID, &created.Token, &platform, &created.UserID, &created.CreatedAt); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to register device", err)
	}
	created.Platform = types.DevicePlatform(platform)
	return &created, nil
}

// FindByUser returns all devices registered by one user.
func (r *DeviceRepository) FindByUser(ctx context.Context, userID string) ([]types.Device, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, token, platform, user_id, created_at
		 FROM devices WHERE user_id = $1`, userID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list user devices", err)
	}
	defer rows.Close()

	return collectDevices(rows)
}

// FindByGroupMembers returns the devices of every member of the group.
func (r *DeviceRepository) FindByGroupMembers(ctx context.Context, groupID string) ([]types.Device, error) {
	rows, err := r.db.Query(ctx,
		`SELECT d.id, d.token, d.platform, d.user_id, d.created_at
		 FROM devices d
		 JOIN group_memberships m ON m.user_id = d.user_id
		 WHERE m.group_id = $1`, groupID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list group devices", err)
	}
	defer rows.Close()

	return collectDevices(rows)
}

// Unregister removes a single device by token.
func (r *DeviceRepository) Unregister(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM devices WHERE token = $1`, token); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to unregister device", err)
	}
	return nil
}

// BulkUnregister removes every device whose token is in the given set.
func (r *DeviceRepository) BulkUnregister(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM devices WHERE token = ANY($1)`, tokens); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to bulk unregister devices", err)
	}
	return nil
}

func collectDevices(rows pgx.Rows) ([]types.Device, error) {
	var results []types.Device
	for rows.Next() {
		var device types.Device
		var platform string
		if err := rows.Scan(&device.ID, &device.Token, &platform, &device.UserID, &device.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan device", err)
		}
		device.Platform = types.DevicePlatform(platform)
		results = append(results, device)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating devices", err)
	}
	return results, nil
}
