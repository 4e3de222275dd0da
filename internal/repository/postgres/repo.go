package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

// CreateRepository inserts a firmware source repository.
func (r *Repository) CreateRepository(ctx context.Context, repo *domain.Repository) error {
	const query = `INSERT INTO repositories (id, user_id, name, url, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, repo.ID, repo.UserID, repo.Name, repo.URL, repo.CreatedAt)
	return err
}

// GetRepositoryByID fetches a repository the user owns.
func (r *Repository) GetRepositoryByID(ctx context.Context, repositoryID, userID string) (*domain.Repository, error) {
	const query = `SELECT id, user_id, name, url, created_at
		FROM repositories WHERE id = $1 AND user_id = $2`
	row := r.pool.QueryRow(ctx, query, repositoryID, userID)
	var repo domain.Repository
	if err := row.Scan(&repo.ID, &repo.UserID, &repo.Name, &repo.URL, &repo.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &repo, nil
}

// ListRepositoriesByUser returns repositories owned by the user.
func (r *Repository) ListRepositoriesByUser(ctx context.Context, userID string) ([]domain.Repository, error) {
	const query = `SELECT id, user_id, name, url, created_at
		FROM repositories WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repos := make([]domain.Repository, 0)
	for rows.Next() {
		var repo domain.Repository
		if err := rows.Scan(&repo.ID, &repo.UserID, &repo.Name, &repo.URL, &repo.CreatedAt); err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// ListRepositoriesWithCounts returns the user's repositories annotated
// with how many devices follow each one and how many builds exist.
func (r *Repository) ListRepositoriesWithCounts(ctx context.Context, userID string) ([]domain.RepositoryWithCounts, error) {
	const query = `SELECT r.id, r.user_id, r.name, r.url, r.created_at,
			(SELECT COUNT(*) FROM devices d WHERE d.repository_id = r.id),
			(SELECT COUNT(*) FROM firmware_builds b WHERE b.repository_id = r.id)
		FROM repositories r
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repos := make([]domain.RepositoryWithCounts, 0)
	for rows.Next() {
		var repo domain.RepositoryWithCounts
		if err := rows.Scan(&repo.ID, &repo.UserID, &repo.Name, &repo.URL, &repo.CreatedAt, &repo.DeviceCount, &repo.BuildCount); err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// UpdateRepository writes name and url for a repository.
func (r *Repository) UpdateRepository(ctx context.Context, repo *domain.Repository) error {
	const query = `UPDATE repositories SET name = $1, url = $2
		WHERE id = $3 AND user_id = $4`
	tag, err := r.pool.Exec(ctx, query, repo.Name, repo.URL, repo.ID, repo.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteRepository removes a repository the user owns.
func (r *Repository) DeleteRepository(ctx context.Context, repositoryID, userID string) error {
	const query = `DELETE FROM repositories WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, repositoryID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
