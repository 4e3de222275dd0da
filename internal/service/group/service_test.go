package group

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

func TestCreateRejectsBlankName(t *testing.T) {
	svc := newTestService(&fakeGroupRepo{}, &fakeDeviceRepo{}, &fakeRepoRepo{})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{Name: " "})
	if !errors.Is(err, errInvalidName) {
		t.Fatalf("expected errInvalidName, got %v", err)
	}
}

func TestAddDeviceChecksBothOwnerships(t *testing.T) {
	groups := &fakeGroupRepo{group: &domain.Group{ID: "grp-1", UserID: "user-1"}}
	devices := &fakeDeviceRepo{err: repository.ErrNotFound}
	svc := newTestService(groups, devices, &fakeRepoRepo{})

	err := svc.AddDevice(context.Background(), "user-1", "grp-1", "dev-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected repository.ErrNotFound for foreign device, got %v", err)
	}
	if groups.addCalls != 0 {
		t.Fatalf("expected no membership writes, got %d", groups.addCalls)
	}
}

func TestAddDeviceWritesMembership(t *testing.T) {
	groups := &fakeGroupRepo{group: &domain.Group{ID: "grp-1", UserID: "user-1"}}
	devices := &fakeDeviceRepo{device: &domain.Device{ID: "dev-1", UserID: "user-1"}}
	svc := newTestService(groups, devices, &fakeRepoRepo{})

	if err := svc.AddDevice(context.Background(), "user-1", "grp-1", "dev-1"); err != nil {
		t.Fatalf("AddDevice returned error: %v", err)
	}
	if groups.addCalls != 1 {
		t.Fatalf("expected one membership write, got %d", groups.addCalls)
	}
}

func TestLinkRepositoryChecksRepositoryOwnership(t *testing.T) {
	groups := &fakeGroupRepo{group: &domain.Group{ID: "grp-1", UserID: "user-1"}}
	repos := &fakeRepoRepo{err: repository.ErrNotFound}
	svc := newTestService(groups, &fakeDeviceRepo{}, repos)

	err := svc.LinkRepository(context.Background(), "user-1", "grp-1", "repo-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected repository.ErrNotFound, got %v", err)
	}
	if groups.linkCalls != 0 {
		t.Fatalf("expected no link writes, got %d", groups.linkCalls)
	}
}

func TestUnlinkRepositoryRequiresGroupOwnership(t *testing.T) {
	groups := &fakeGroupRepo{}
	svc := newTestService(groups, &fakeDeviceRepo{}, &fakeRepoRepo{})

	err := svc.UnlinkRepository(context.Background(), "user-1", "grp-1", "repo-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected repository.ErrNotFound for foreign group, got %v", err)
	}
	if groups.unlinkCalls != 0 {
		t.Fatalf("expected no unlink writes, got %d", groups.unlinkCalls)
	}
}

func TestUnlinkRepositoryRemovesLink(t *testing.T) {
	groups := &fakeGroupRepo{group: &domain.Group{ID: "grp-1", UserID: "user-1"}}
	svc := newTestService(groups, &fakeDeviceRepo{}, &fakeRepoRepo{})

	if err := svc.UnlinkRepository(context.Background(), "user-1", "grp-1", "repo-1"); err != nil {
		t.Fatalf("UnlinkRepository returned error: %v", err)
	}
	if groups.unlinkCalls != 1 {
		t.Fatalf("expected one unlink write, got %d", groups.unlinkCalls)
	}
}

func TestDevicesRequiresGroupOwnership(t *testing.T) {
	groups := &fakeGroupRepo{}
	svc := newTestService(groups, &fakeDeviceRepo{}, &fakeRepoRepo{})

	_, err := svc.Devices(context.Background(), "user-1", "grp-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected repository.ErrNotFound for foreign group, got %v", err)
	}
}

func newTestService(groups repository.GroupRepository, devices repository.DeviceRepository, repos repository.RepoRepository) Service {
	return New(groups, devices, repos, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeGroupRepo struct {
	group       *domain.Group
	addCalls    int
	linkCalls   int
	unlinkCalls int
}

func (f *fakeGroupRepo) CreateGroup(context.Context, *domain.Group) error { return nil }

func (f *fakeGroupRepo) GetGroupByID(context.Context, string, string) (*domain.Group, error) {
	if f.group == nil {
		return nil, repository.ErrNotFound
	}
	return f.group, nil
}

func (f *fakeGroupRepo) ListGroupsByUser(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}

func (f *fakeGroupRepo) UpdateGroup(context.Context, *domain.Group) error { return nil }

func (f *fakeGroupRepo) DeleteGroup(context.Context, string, string) error { return nil }

func (f *fakeGroupRepo) AddDeviceToGroup(context.Context, string, string) error {
	f.addCalls++
	return nil
}

func (f *fakeGroupRepo) RemoveDeviceFromGroup(context.Context, string, string) error { return nil }

func (f *fakeGroupRepo) LinkRepositoryToGroup(context.Context, string, string) error {
	f.linkCalls++
	return nil
}

func (f *fakeGroupRepo) UnlinkRepositoryFromGroup(context.Context, string, string) error {
	f.unlinkCalls++
	return nil
}

func (f *fakeGroupRepo) ListDevicesForGroup(context.Context, string) ([]domain.Device, error) {
	return nil, nil
}

func (f *fakeGroupRepo) ListGroupsForDevice(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}

func (f *fakeGroupRepo) ListGroupsForRepository(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}

type fakeDeviceRepo struct {
	device *domain.Device
	err    error
}

func (f *fakeDeviceRepo) CreateDevice(context.Context, *domain.Device) error { return nil }

func (f *fakeDeviceRepo) GetDeviceByID(context.Context, string, string) (*domain.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.device == nil {
		return nil, repository.ErrNotFound
	}
	return f.device, nil
}

func (f *fakeDeviceRepo) ListDevicesByUser(context.Context, string) ([]domain.Device, error) {
	return nil, nil
}

func (f *fakeDeviceRepo) UpdateDevice(context.Context, *domain.Device) error { return nil }

func (f *fakeDeviceRepo) DeleteDevice(context.Context, string, string) error { return nil }

func (f *fakeDeviceRepo) SetDeviceRepository(context.Context, string, *string) error { return nil }

type fakeRepoRepo struct {
	repo *domain.Repository
	err  error
}

func (f *fakeRepoRepo) CreateRepository(context.Context, *domain.Repository) error { return nil }

func (f *fakeRepoRepo) GetRepositoryByID(context.Context, string, string) (*domain.Repository, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.repo == nil {
		return nil, repository.ErrNotFound
	}
	return f.repo, nil
}

func (f *fakeRepoRepo) ListRepositoriesByUser(context.Context, string) ([]domain.Repository, error) {
	return nil, nil
}

func (f *fakeRepoRepo) ListRepositoriesWithCounts(context.Context, string) ([]domain.RepositoryWithCounts, error) {
	return nil, nil
}

func (f *fakeRepoRepo) UpdateRepository(context.Context, *domain.Repository) error { return nil }

func (f *fakeRepoRepo) DeleteRepository(context.Context, string, string) error { return nil }
