package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

// CreateDevice inserts a device.
func (r *Repository) CreateDevice(ctx context.Context, device *domain.Device) error {
	const query = `INSERT INTO devices (id, user_id, name, model, repository_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, device.ID, device.UserID, device.Name, string(device.Model), device.RepositoryID, device.CreatedAt, device.UpdatedAt)
	return err
}

// GetDeviceByID fetches a device the user owns.
func (r *Repository) GetDeviceByID(ctx context.Context, deviceID, userID string) (*domain.Device, error) {
	const query = `SELECT id, user_id, name, model, repository_id, created_at, updated_at
		FROM devices WHERE id = $1 AND user_id = $2`
	row := r.pool.QueryRow(ctx, query, deviceID, userID)
	return scanDevice(row)
}

// ListDevicesByUser returns all devices owned by the user.
func (r *Repository) ListDevicesByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	const query = `SELECT id, user_id, name, model, repository_id, created_at, updated_at
		FROM devices WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]domain.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	return devices, rows.Err()
}

// UpdateDevice writes name, model and updated_at for a device.
func (r *Repository) UpdateDevice(ctx context.Context, device *domain.Device) error {
	const query = `UPDATE devices SET name = $1, model = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5`
	tag, err := r.pool.Exec(ctx, query, device.Name, string(device.Model), device.UpdatedAt, device.ID, device.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteDevice removes a device the user owns.
func (r *Repository) DeleteDevice(ctx context.Context, deviceID, userID string) error {
	const query = `DELETE FROM devices WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, deviceID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetDeviceRepository links or unlinks (nil) the device's repository.
func (r *Repository) SetDeviceRepository(ctx context.Context, deviceID string, repositoryID *string) error {
	const query = `UPDATE devices SET repository_id = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, query, repositoryID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var d domain.Device
	var model string
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &model, &d.RepositoryID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	d.Model = domain.DeviceModel(model)
	return &d, nil
}
