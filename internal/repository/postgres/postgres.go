package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sector-iot/sector-platform/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository          = (*Repository)(nil)
	_ repository.DeviceRepository        = (*Repository)(nil)
	_ repository.GroupRepository         = (*Repository)(nil)
	_ repository.RepoRepository          = (*Repository)(nil)
	_ repository.FirmwareBuildRepository = (*Repository)(nil)
)
