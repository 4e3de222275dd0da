package repository

import (
	"context"

	"github.com/sector-iot/sector-platform/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// DeviceRepository persists devices and their group memberships. Read
// and delete operations are scoped to the owning user.
type DeviceRepository interface {
	CreateDevice(ctx context.Context, device *domain.Device) error
	GetDeviceByID(ctx context.Context, deviceID, userID string) (*domain.Device, error)
	ListDevicesByUser(ctx context.Context, userID string) ([]domain.Device, error)
	UpdateDevice(ctx context.Context, device *domain.Device) error
	DeleteDevice(ctx context.Context, deviceID, userID string) error
	SetDeviceRepository(ctx context.Context, deviceID string, repositoryID *string) error
}

// GroupRepository persists groups and the join tables linking them to
// devices and repositories.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *domain.Group) error
	GetGroupByID(ctx context.Context, groupID, userID string) (*domain.Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]domain.Group, error)
	UpdateGroup(ctx context.Context, group *domain.Group) error
	DeleteGroup(ctx context.Context, groupID, userID string) error
	AddDeviceToGroup(ctx context.Context, groupID, deviceID string) error
	RemoveDeviceFromGroup(ctx context.Context, groupID, deviceID string) error
	LinkRepositoryToGroup(ctx context.Context, repositoryID, groupID string) error
	UnlinkRepositoryFromGroup(ctx context.Context, repositoryID, groupID string) error
	ListDevicesForGroup(ctx context.Context, groupID string) ([]domain.Device, error)
	ListGroupsForDevice(ctx context.Context, deviceID string) ([]domain.Group, error)
	ListGroupsForRepository(ctx context.Context, repositoryID string) ([]domain.Group, error)
}

// RepoRepository persists firmware source repositories.
type RepoRepository interface {
	CreateRepository(ctx context.Context, repo *domain.Repository) error
	GetRepositoryByID(ctx context.Context, repositoryID, userID string) (*domain.Repository, error)
	ListRepositoriesByUser(ctx context.Context, userID string) ([]domain.Repository, error)
	// ListRepositoriesWithCounts returns the user's repositories with
	// per-repository device and build totals for list views.
	ListRepositoriesWithCounts(ctx context.Context, userID string) ([]domain.RepositoryWithCounts, error)
	UpdateRepository(ctx context.Context, repo *domain.Repository) error
	DeleteRepository(ctx context.Context, repositoryID, userID string) error
}

// FirmwareBuildRepository stores build records and answers the version
// and resolution queries the firmware service depends on.
type FirmwareBuildRepository interface {
	CreateBuild(ctx context.Context, build *domain.FirmwareBuild) error
	// GetBuildWithOwner returns the build and the user ID owning its
	// repository, so callers can distinguish missing from foreign builds.
	GetBuildWithOwner(ctx context.Context, buildID string) (*domain.FirmwareBuild, string, error)
	ListBuildsByUser(ctx context.Context, userID string) ([]domain.FirmwareBuild, error)
	// GetLatestBuildForRepository returns the build with the greatest
	// stored version for a repository, regardless of status.
	GetLatestBuildForRepository(ctx context.Context, repositoryID string) (*domain.FirmwareBuild, error)
	// GetCurrentBuild returns the highest-version SUCCESS build matching
	// either the repository or any of the groups. Both conditions are
	// evaluated in a single query.
	GetCurrentBuild(ctx context.Context, repositoryID *string, groupIDs []string) (*domain.FirmwareBuild, error)
	UpdateBuild(ctx context.Context, update domain.FirmwareBuildUpdate) (*domain.FirmwareBuild, error)
	DeleteBuild(ctx context.Context, buildID string) error
}
