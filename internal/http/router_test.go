package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
	"github.com/sector-iot/sector-platform/internal/service/auth"
	"github.com/sector-iot/sector-platform/internal/service/device"
	"github.com/sector-iot/sector-platform/internal/service/firmware"
	"github.com/sector-iot/sector-platform/internal/service/group"
	"github.com/sector-iot/sector-platform/internal/service/repo"
	"github.com/sector-iot/sector-platform/pkg/config"
	jwtpkg "github.com/sector-iot/sector-platform/pkg/jwt"
)

const testJWTSecret = "router-test-secret"

// newTestRouter wires real services over stub stores so handler tests
// exercise the full status-code mapping, auth included.
func newTestRouter(t *testing.T, builds repository.FirmwareBuildRepository, repos repository.RepoRepository) *Router {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{JWTSecret: testJWTSecret, AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour}
	users := &stubUserRepo{user: &domain.User{ID: "user-1", Email: "owner@example.com"}}
	devices := &stubDeviceRepo{}
	groups := &stubGroupRepo{}

	authSvc := auth.New(users, log, cfg)
	deviceSvc := device.New(devices, repos, groups, log)
	groupSvc := group.New(groups, devices, repos, log)
	repoSvc := repo.New(repos, log)
	firmwareSvc := firmware.New(builds, repos, groups, devices, nil, nil, log)

	router := NewRouter(log, authSvc, deviceSvc, groupSvc, repoSvc, firmwareSvc, nil, nil, nil)
	t.Cleanup(router.Close)
	return router
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	token, err := jwtpkg.GenerateToken("user-1", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestFirmwareUpdateForeignBuildForbidden(t *testing.T) {
	builds := &stubBuildRepo{
		ownerBuild: &domain.FirmwareBuild{ID: "b-1", RepositoryID: "repo-9", Version: 10, Status: domain.BuildStatusSuccess},
		ownerID:    "someone-else",
	}
	router := newTestRouter(t, builds, &stubRepoRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPut, "/firmware/b-1", `{"status":"SUCCESS"}`))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a build owned by another user, got %d", rec.Code)
	}
}

func TestFirmwareLatestUnknownRepositoryNotFound(t *testing.T) {
	router := newTestRouter(t, &stubBuildRepo{}, &stubRepoRepo{err: repository.ErrNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/firmware/repo-missing", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown repository, got %d", rec.Code)
	}
}

func TestFirmwareCreateRejectsPartialVersion(t *testing.T) {
	router := newTestRouter(t, &stubBuildRepo{}, &stubRepoRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/firmware", `{"repositoryId":"repo-1","version":"1.2"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for version 1.2, got %d", rec.Code)
	}
}

func TestFirmwareRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubBuildRepo{}, &stubRepoRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/firmware", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without Authorization header, got %d", rec.Code)
	}
}

type stubUserRepo struct {
	user *domain.User
}

func (s *stubUserRepo) CreateUser(context.Context, *domain.User) error { return nil }

func (s *stubUserRepo) GetUserByEmail(context.Context, string) (*domain.User, error) {
	if s.user == nil {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) GetUserByID(context.Context, string) (*domain.User, error) {
	if s.user == nil {
		return nil, repository.ErrNotFound
	}
	return s.user, nil
}

type stubRepoRepo struct {
	err error
}

func (s *stubRepoRepo) CreateRepository(context.Context, *domain.Repository) error { return s.err }

func (s *stubRepoRepo) GetRepositoryByID(_ context.Context, repositoryID, userID string) (*domain.Repository, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Repository{ID: repositoryID, UserID: userID}, nil
}

func (s *stubRepoRepo) ListRepositoriesByUser(context.Context, string) ([]domain.Repository, error) {
	return nil, s.err
}

func (s *stubRepoRepo) ListRepositoriesWithCounts(context.Context, string) ([]domain.RepositoryWithCounts, error) {
	return nil, s.err
}

func (s *stubRepoRepo) UpdateRepository(context.Context, *domain.Repository) error { return s.err }

func (s *stubRepoRepo) DeleteRepository(context.Context, string, string) error { return s.err }

type stubBuildRepo struct {
	ownerBuild *domain.FirmwareBuild
	ownerID    string
}

func (s *stubBuildRepo) CreateBuild(context.Context, *domain.FirmwareBuild) error { return nil }

func (s *stubBuildRepo) GetBuildWithOwner(context.Context, string) (*domain.FirmwareBuild, string, error) {
	if s.ownerBuild == nil {
		return nil, "", repository.ErrNotFound
	}
	return s.ownerBuild, s.ownerID, nil
}

func (s *stubBuildRepo) ListBuildsByUser(context.Context, string) ([]domain.FirmwareBuild, error) {
	return nil, nil
}

func (s *stubBuildRepo) GetLatestBuildForRepository(context.Context, string) (*domain.FirmwareBuild, error) {
	return nil, repository.ErrNotFound
}

func (s *stubBuildRepo) GetCurrentBuild(context.Context, *string, []string) (*domain.FirmwareBuild, error) {
	return nil, repository.ErrNotFound
}

func (s *stubBuildRepo) UpdateBuild(context.Context, domain.FirmwareBuildUpdate) (*domain.FirmwareBuild, error) {
	return nil, repository.ErrNotFound
}

func (s *stubBuildRepo) DeleteBuild(context.Context, string) error { return nil }

type stubDeviceRepo struct{}

func (s *stubDeviceRepo) CreateDevice(context.Context, *domain.Device) error { return nil }

func (s *stubDeviceRepo) GetDeviceByID(context.Context, string, string) (*domain.Device, error) {
	return nil, repository.ErrNotFound
}

func (s *stubDeviceRepo) ListDevicesByUser(context.Context, string) ([]domain.Device, error) {
	return nil, nil
}

func (s *stubDeviceRepo) UpdateDevice(context.Context, *domain.Device) error { return nil }

func (s *stubDeviceRepo) DeleteDevice(context.Context, string, string) error { return nil }

func (s *stubDeviceRepo) SetDeviceRepository(context.Context, string, *string) error { return nil }

type stubGroupRepo struct{}

func (s *stubGroupRepo) CreateGroup(context.Context, *domain.Group) error { return nil }

func (s *stubGroupRepo) GetGroupByID(context.Context, string, string) (*domain.Group, error) {
	return nil, repository.ErrNotFound
}

func (s *stubGroupRepo) ListGroupsByUser(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}

func (s *stubGroupRepo) UpdateGroup(context.Context, *domain.Group) error { return nil }

func (s *stubGroupRepo) DeleteGroup(context.Context, string, string) error { return nil }

func (s *stubGroupRepo) AddDeviceToGroup(context.Context, string, string) error { return nil }

func (s *stubGroupRepo) RemoveDeviceFromGroup(context.Context, string, string) error { return nil }

func (s *stubGroupRepo) LinkRepositoryToGroup(context.Context, string, string) error { return nil }

func (s *stubGroupRepo) UnlinkRepositoryFromGroup(context.Context, string, string) error { return nil }

func (s *stubGroupRepo) ListDevicesForGroup(context.Context, string) ([]domain.Device, error) {
	return nil, nil
}

func (s *stubGroupRepo) ListGroupsForDevice(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}

func (s *stubGroupRepo) ListGroupsForRepository(context.Context, string) ([]domain.Group, error) {
	return nil, nil
}
