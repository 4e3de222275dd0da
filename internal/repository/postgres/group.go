package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

// CreateGroup inserts a group.
func (r *Repository) CreateGroup(ctx context.Context, group *domain.Group) error {
	const query = `INSERT INTO groups (id, user_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, group.ID, group.UserID, group.Name, group.Description, group.CreatedAt)
	return err
}

// GetGroupByID fetches a group the user owns.
func (r *Repository) GetGroupByID(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	const query = `SELECT id, user_id, name, description, created_at
		FROM groups WHERE id = $1 AND user_id = $2`
	row := r.pool.QueryRow(ctx, query, groupID, userID)
	var g domain.Group
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListGroupsByUser returns groups owned by the user.
func (r *Repository) ListGroupsByUser(ctx context.Context, userID string) ([]domain.Group, error) {
	const query = `SELECT id, user_id, name, description, created_at
		FROM groups WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroups(rows)
}

// UpdateGroup writes name and description for a group.
func (r *Repository) UpdateGroup(ctx context.Context, group *domain.Group) error {
	const query = `UPDATE groups SET name = $1, description = $2
		WHERE id = $3 AND user_id = $4`
	tag, err := r.pool.Exec(ctx, query, group.Name, group.Description, group.ID, group.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group the user owns. Join rows cascade.
func (r *Repository) DeleteGroup(ctx context.Context, groupID, userID string) error {
	const query = `DELETE FROM groups WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, groupID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddDeviceToGroup records group membership, idempotently.
func (r *Repository) AddDeviceToGroup(ctx context.Context, groupID, deviceID string) error {
	const query = `INSERT INTO group_devices (group_id, device_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, device_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, groupID, deviceID)
	return err
}

// RemoveDeviceFromGroup deletes a membership row.
func (r *Repository) RemoveDeviceFromGroup(ctx context.Context, groupID, deviceID string) error {
	const query = `DELETE FROM group_devices WHERE group_id = $1 AND device_id = $2`
	tag, err := r.pool.Exec(ctx, query, groupID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// LinkRepositoryToGroup records that the group follows the repository's
// firmware stream, idempotently.
func (r *Repository) LinkRepositoryToGroup(ctx context.Context, repositoryID, groupID string) error {
	const query = `INSERT INTO repository_groups (repository_id, group_id)
		VALUES ($1, $2)
		ON CONFLICT (repository_id, group_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, repositoryID, groupID)
	return err
}

// UnlinkRepositoryFromGroup deletes the subscription row.
func (r *Repository) UnlinkRepositoryFromGroup(ctx context.Context, repositoryID, groupID string) error {
	const query = `DELETE FROM repository_groups WHERE repository_id = $1 AND group_id = $2`
	tag, err := r.pool.Exec(ctx, query, repositoryID, groupID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListDevicesForGroup returns member devices of a group.
func (r *Repository) ListDevicesForGroup(ctx context.Context, groupID string) ([]domain.Device, error) {
	const query = `SELECT d.id, d.user_id, d.name, d.model, d.repository_id, d.created_at, d.updated_at
		FROM devices d
		INNER JOIN group_devices gd ON gd.device_id = d.id
		WHERE gd.group_id = $1
		ORDER BY d.created_at DESC`
	rows, err := r.pool.Query(ctx, query, groupID)
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

// ListGroupsForDevice returns the groups a device belongs to.
func (r *Repository) ListGroupsForDevice(ctx context.Context, deviceID string) ([]domain.Group, error) {
	const query = `SELECT g.id, g.user_id, g.name, g.description, g.created_at
		FROM groups g
		INNER JOIN group_devices gd ON gd.group_id = g.id
		WHERE gd.device_id = $1
		ORDER BY g.created_at DESC`
	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroups(rows)
}

// ListGroupsForRepository returns groups linked to the repository.
func (r *Repository) ListGroupsForRepository(ctx context.Context, repositoryID string) ([]domain.Group, error) {
	const query = `SELECT g.id, g.user_id, g.name, g.description, g.created_at
		FROM groups g
		INNER JOIN repository_groups rg ON rg.group_id = g.id
		WHERE rg.repository_id = $1
		ORDER BY g.created_at ASC`
	rows, err := r.pool.Query(ctx, query, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGroups(rows)
}

func collectGroups(rows pgx.Rows) ([]domain.Group, error) {
	groups := make([]domain.Group, 0)
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
