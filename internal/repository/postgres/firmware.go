package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

const buildColumns = `id, repository_id, group_id, url, version, status, created_at, updated_at`

// CreateBuild inserts a firmware build record.
func (r *Repository) CreateBuild(ctx context.Context, build *domain.FirmwareBuild) error {
	const query = `INSERT INTO firmware_builds (id, repository_id, group_id, url, version, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, build.ID, build.RepositoryID, build.GroupID, build.URL, build.Version, build.Status, build.CreatedAt, build.UpdatedAt)
	return err
}

// GetBuildWithOwner returns a build and the user owning its repository.
func (r *Repository) GetBuildWithOwner(ctx context.Context, buildID string) (*domain.FirmwareBuild, string, error) {
	const query = `SELECT b.id, b.repository_id, b.group_id, b.url, b.version, b.status, b.created_at, b.updated_at, r.user_id
		FROM firmware_builds b
		INNER JOIN repositories r ON r.id = b.repository_id
		WHERE b.id = $1`
	row := r.pool.QueryRow(ctx, query, buildID)
	var b domain.FirmwareBuild
	var ownerID string
	if err := row.Scan(&b.ID, &b.RepositoryID, &b.GroupID, &b.URL, &b.Version, &b.Status, &b.CreatedAt, &b.UpdatedAt, &ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", repository.ErrNotFound
		}
		return nil, "", err
	}
	return &b, ownerID, nil
}

// ListBuildsByUser returns builds across all repositories the user owns.
func (r *Repository) ListBuildsByUser(ctx context.Context, userID string) ([]domain.FirmwareBuild, error) {
	const query = `SELECT b.id, b.repository_id, b.group_id, b.url, b.version, b.status, b.created_at, b.updated_at
		FROM firmware_builds b
		INNER JOIN repositories r ON r.id = b.repository_id
		WHERE r.user_id = $1
		ORDER BY b.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBuilds(rows)
}

// GetLatestBuildForRepository returns the highest-version build for a
// repository, independent of status.
func (r *Repository) GetLatestBuildForRepository(ctx context.Context, repositoryID string) (*domain.FirmwareBuild, error) {
	const query = `SELECT ` + buildColumns + `
		FROM firmware_builds
		WHERE repository_id = $1
		ORDER BY version DESC
		LIMIT 1`
	row := r.pool.QueryRow(ctx, query, repositoryID)
	return scanBuild(row)
}

// GetCurrentBuild returns the highest-version SUCCESS build matching the
// repository or any of the groups. The OR is evaluated in one query so
// version ordering decides between the two streams.
func (r *Repository) GetCurrentBuild(ctx context.Context, repositoryID *string, groupIDs []string) (*domain.FirmwareBuild, error) {
	const query = `SELECT ` + buildColumns + `
		FROM firmware_builds
		WHERE status = 'SUCCESS' AND (group_id = ANY($1) OR repository_id = $2)
		ORDER BY version DESC
		LIMIT 1`
	row := r.pool.QueryRow(ctx, query, groupIDs, repositoryID)
	return scanBuild(row)
}

// UpdateBuild applies partial field updates and returns the new record.
func (r *Repository) UpdateBuild(ctx context.Context, update domain.FirmwareBuildUpdate) (*domain.FirmwareBuild, error) {
	const query = `UPDATE firmware_builds SET
			url = COALESCE($2, url),
			status = COALESCE($3, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + buildColumns
	row := r.pool.QueryRow(ctx, query, update.BuildID, update.URL, update.Status)
	return scanBuild(row)
}

// DeleteBuild removes a build record.
func (r *Repository) DeleteBuild(ctx context.Context, buildID string) error {
	const query = `DELETE FROM firmware_builds WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, buildID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanBuild(row pgx.Row) (*domain.FirmwareBuild, error) {
	var b domain.FirmwareBuild
	if err := row.Scan(&b.ID, &b.RepositoryID, &b.GroupID, &b.URL, &b.Version, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectBuilds(rows pgx.Rows) ([]domain.FirmwareBuild, error) {
	builds := make([]domain.FirmwareBuild, 0)
	for rows.Next() {
		var b domain.FirmwareBuild
		if err := rows.Scan(&b.ID, &b.RepositoryID, &b.GroupID, &b.URL, &b.Version, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}
