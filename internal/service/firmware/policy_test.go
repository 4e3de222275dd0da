package firmware

import (
	"context"
	"errors"
	"testing"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

// memoryBuildStore reimplements the store's build queries over a slice,
// so the resolution ordering and filtering rules can be exercised
// end to end instead of echoing canned rows.
type memoryBuildStore struct {
	builds []domain.FirmwareBuild
}

func (m *memoryBuildStore) CreateBuild(_ context.Context, build *domain.FirmwareBuild) error {
	m.builds = append(m.builds, *build)
	return nil
}

func (m *memoryBuildStore) GetBuildWithOwner(_ context.Context, buildID string) (*domain.FirmwareBuild, string, error) {
	for i := range m.builds {
		if m.builds[i].ID == buildID {
			build := m.builds[i]
			return &build, "", nil
		}
	}
	return nil, "", repository.ErrNotFound
}

func (m *memoryBuildStore) ListBuildsByUser(context.Context, string) ([]domain.FirmwareBuild, error) {
	out := make([]domain.FirmwareBuild, len(m.builds))
	copy(out, m.builds)
	return out, nil
}

func (m *memoryBuildStore) GetLatestBuildForRepository(_ context.Context, repositoryID string) (*domain.FirmwareBuild, error) {
	var latest *domain.FirmwareBuild
	for i := range m.builds {
		b := &m.builds[i]
		if b.RepositoryID != repositoryID {
			continue
		}
		if latest == nil || b.Version > latest.Version {
			latest = b
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	build := *latest
	return &build, nil
}

func (m *memoryBuildStore) GetCurrentBuild(_ context.Context, repositoryID *string, groupIDs []string) (*domain.FirmwareBuild, error) {
	inGroups := func(id *string) bool {
		if id == nil {
			return false
		}
		for _, g := range groupIDs {
			if g == *id {
				return true
			}
		}
		return false
	}
	var current *domain.FirmwareBuild
	for i := range m.builds {
		b := &m.builds[i]
		if b.Status != domain.BuildStatusSuccess {
			continue
		}
		if !inGroups(b.GroupID) && (repositoryID == nil || b.RepositoryID != *repositoryID) {
			continue
		}
		if current == nil || b.Version > current.Version {
			current = b
		}
	}
	if current == nil {
		return nil, repository.ErrNotFound
	}
	build := *current
	return &build, nil
}

func (m *memoryBuildStore) UpdateBuild(_ context.Context, update domain.FirmwareBuildUpdate) (*domain.FirmwareBuild, error) {
	for i := range m.builds {
		if m.builds[i].ID != update.BuildID {
			continue
		}
		if update.URL != nil {
			m.builds[i].URL = update.URL
		}
		if update.Status != nil {
			m.builds[i].Status = *update.Status
		}
		build := m.builds[i]
		return &build, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryBuildStore) DeleteBuild(_ context.Context, buildID string) error {
	for i := range m.builds {
		if m.builds[i].ID == buildID {
			m.builds = append(m.builds[:i], m.builds[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func strptr(s string) *string { return &s }

func resolutionService(store *memoryBuildStore, device *domain.Device, memberships []domain.Group) Service {
	return newTestService(func(s *Service) {
		s.builds = store
		s.devices = &fakeDeviceRepo{device: device}
		s.groups = &fakeGroupRepo{forDevice: memberships}
	})
}

func TestResolvePrefersLinkedRepositoryOverUnrelatedHigherVersion(t *testing.T) {
	store := &memoryBuildStore{builds: []domain.FirmwareBuild{
		{ID: "b-mine", RepositoryID: "repo-1", Version: 10, Status: domain.BuildStatusSuccess},
		{ID: "b-other", RepositoryID: "repo-2", Version: 950, Status: domain.BuildStatusSuccess},
	}}
	device := &domain.Device{ID: "dev-1", UserID: "user-1", RepositoryID: strptr("repo-1")}
	svc := resolutionService(store, device, nil)

	build, err := svc.ResolveForDevice(context.Background(), "user-1", "dev-1")
	if err != nil {
		t.Fatalf("ResolveForDevice returned error: %v", err)
	}
	if build.ID != "b-mine" {
		t.Fatalf("expected repository-scoped build b-mine, got %s", build.ID)
	}
	if build.Version != "0.1.0" {
		t.Fatalf("expected version 0.1.0, got %s", build.Version)
	}
}

func TestResolveIgnoresNonSuccessBuilds(t *testing.T) {
	store := &memoryBuildStore{builds: []domain.FirmwareBuild{
		{ID: "b-1", RepositoryID: "repo-1", Version: 10, Status: domain.BuildStatusFailed},
		{ID: "b-2", RepositoryID: "repo-1", Version: 11, Status: domain.BuildStatusBuilding},
	}}
	device := &domain.Device{ID: "dev-1", UserID: "user-1", RepositoryID: strptr("repo-1")}
	svc := resolutionService(store, device, nil)

	_, err := svc.ResolveForDevice(context.Background(), "user-1", "dev-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected repository.ErrNotFound without a SUCCESS build, got %v", err)
	}
}

func TestResolvePicksHighestVersionAcrossGroupsAndRepository(t *testing.T) {
	store := &memoryBuildStore{builds: []domain.FirmwareBuild{
		{ID: "b-repo", RepositoryID: "repo-1", Version: 34, Status: domain.BuildStatusSuccess},
		{ID: "b-group", RepositoryID: "repo-9", GroupID: strptr("grp-1"), Version: 120, Status: domain.BuildStatusSuccess},
	}}
	device := &domain.Device{ID: "dev-1", UserID: "user-1", RepositoryID: strptr("repo-1")}
	svc := resolutionService(store, device, []domain.Group{{ID: "grp-1"}})

	build, err := svc.ResolveForDevice(context.Background(), "user-1", "dev-1")
	if err != nil {
		t.Fatalf("ResolveForDevice returned error: %v", err)
	}
	if build.ID != "b-group" {
		t.Fatalf("expected group-scoped build b-group, got %s", build.ID)
	}
	if build.Version != "1.2.0" {
		t.Fatalf("expected version 1.2.0, got %s", build.Version)
	}
}

// A failed patch must still advance the version counter while devices
// keep resolving to the last good build.
func TestFailedPatchAdvancesCounterButNotDevices(t *testing.T) {
	store := &memoryBuildStore{builds: []domain.FirmwareBuild{
		{ID: "b-good", RepositoryID: "repo-1", Version: 10, Status: domain.BuildStatusSuccess},
		{ID: "b-bad", RepositoryID: "repo-1", Version: 11, Status: domain.BuildStatusFailed},
	}}
	svc := newTestService(func(s *Service) {
		s.builds = store
		s.devices = &fakeDeviceRepo{device: &domain.Device{ID: "dev-1", UserID: "user-1", RepositoryID: strptr("repo-1")}}
	})

	created, err := svc.Create(context.Background(), "user-1", CreateInput{RepositoryID: "repo-1"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Version != "0.1.2" {
		t.Fatalf("expected next version 0.1.2 after failed 0.1.1, got %s", created.Version)
	}

	resolved, err := svc.ResolveForDevice(context.Background(), "user-1", "dev-1")
	if err != nil {
		t.Fatalf("ResolveForDevice returned error: %v", err)
	}
	if resolved.Version != "0.1.0" {
		t.Fatalf("expected devices to stay on 0.1.0, got %s", resolved.Version)
	}
}
