package firmware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/mqtt"
	"github.com/sector-iot/sector-platform/internal/repository"
	"github.com/sector-iot/sector-platform/internal/ws"
)

// Publisher delivers firmware events to the message broker. Delivery is
// best-effort: a failed publish is logged and never retried here.
type Publisher interface {
	PublishFirmwareUpdate(event mqtt.FirmwareEvent) error
}

// Service orchestrates the firmware build lifecycle: version
// resolution, persistence, and build-completion notifications.
type Service struct {
	builds    repository.FirmwareBuildRepository
	repos     repository.RepoRepository
	groups    repository.GroupRepository
	devices   repository.DeviceRepository
	publisher Publisher
	stream    *ws.Hub
	logger    *slog.Logger
}

// New returns a firmware service. publisher and stream may be nil, in
// which case the corresponding notification path is skipped.
func New(builds repository.FirmwareBuildRepository, repos repository.RepoRepository, groups repository.GroupRepository, devices repository.DeviceRepository, publisher Publisher, stream *ws.Hub, logger *slog.Logger) Service {
	return Service{
		builds:    builds,
		repos:     repos,
		groups:    groups,
		devices:   devices,
		publisher: publisher,
		stream:    stream,
		logger:    logger,
	}
}

// Build is the API view of a firmware build, carrying the decoded
// semantic version instead of the stored encoding.
type Build struct {
	ID           string    `json:"id"`
	RepositoryID string    `json:"repositoryId"`
	GroupID      *string   `json:"groupId,omitempty"`
	URL          *string   `json:"url,omitempty"`
	Version      string    `json:"version"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateInput encapsulates build creation attributes. Version and
// GroupID are optional; an empty Version requests auto-increment.
type CreateInput struct {
	RepositoryID string `json:"repositoryId"`
	GroupID      string `json:"groupId"`
	URL          string `json:"url"`
	Version      string `json:"version"`
	Status       string `json:"status"`
}

// UpdateInput holds partial build updates. Nil fields are untouched.
type UpdateInput struct {
	URL    *string `json:"url"`
	Status *string `json:"status"`
}

// Create registers a new build for a repository the user owns, assigns
// its version, and announces it to subscribers.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*Build, error) {
	if strings.TrimSpace(input.RepositoryID) == "" {
		return nil, errMissingRepository
	}
	if _, err := s.repos.GetRepositoryByID(ctx, input.RepositoryID, userID); err != nil {
		return nil, err
	}

	groupID, err := s.resolveGroup(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.BuildStatusBuilding
	}
	if !domain.ValidBuildStatus(status) {
		return nil, ErrInvalidStatus
	}

	version, err := s.resolveNextVersion(ctx, input.RepositoryID, input.Version)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeVersion(version)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	build := &domain.FirmwareBuild{
		ID:           uuid.NewString(),
		RepositoryID: input.RepositoryID,
		GroupID:      groupID,
		Version:      encoded,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if url := strings.TrimSpace(input.URL); url != "" {
		build.URL = &url
	}
	if err := s.builds.CreateBuild(ctx, build); err != nil {
		return nil, err
	}
	s.logger.Info("firmware build created", "build_id", build.ID, "repository_id", build.RepositoryID, "version", version)

	s.notify(userID, build, version)
	return buildView(build, version), nil
}

// Update applies partial changes to a build owned by the user. Setting
// status to SUCCESS triggers a single notification attempt.
func (s Service) Update(ctx context.Context, userID, buildID string, input UpdateInput) (*Build, error) {
	if strings.TrimSpace(buildID) == "" {
		return nil, errMissingBuildID
	}
	if input.Status != nil && !domain.ValidBuildStatus(*input.Status) {
		return nil, ErrInvalidStatus
	}
	_, ownerID, err := s.builds.GetBuildWithOwner(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}

	updated, err := s.builds.UpdateBuild(ctx, domain.FirmwareBuildUpdate{
		BuildID: buildID,
		URL:     input.URL,
		Status:  input.Status,
	})
	if err != nil {
		return nil, err
	}
	version, err := DecodeVersion(updated.Version)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && *input.Status == domain.BuildStatusSuccess {
		s.notify(userID, updated, version)
	}
	return buildView(updated, version), nil
}

// Delete removes a build owned by the user.
func (s Service) Delete(ctx context.Context, userID, buildID string) error {
	if strings.TrimSpace(buildID) == "" {
		return errMissingBuildID
	}
	_, ownerID, err := s.builds.GetBuildWithOwner(ctx, buildID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return ErrForbidden
	}
	return s.builds.DeleteBuild(ctx, buildID)
}

// List returns all builds across the user's repositories.
func (s Service) List(ctx context.Context, userID string) ([]Build, error) {
	records, err := s.builds.ListBuildsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	builds := make([]Build, 0, len(records))
	for i := range records {
		version, err := DecodeVersion(records[i].Version)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *buildView(&records[i], version))
	}
	return builds, nil
}

// GetLatestForRepository returns the highest-version build of a
// repository the user owns, regardless of status.
func (s Service) GetLatestForRepository(ctx context.Context, userID, repositoryID string) (*Build, error) {
	if strings.TrimSpace(repositoryID) == "" {
		return nil, errMissingRepository
	}
	if _, err := s.repos.GetRepositoryByID(ctx, repositoryID, userID); err != nil {
		return nil, err
	}
	build, err := s.builds.GetLatestBuildForRepository(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	version, err := DecodeVersion(build.Version)
	if err != nil {
		return nil, err
	}
	return buildView(build, version), nil
}

// ResolveForDevice determines the build a device should currently run:
// the highest-version SUCCESS build from either the device's groups or
// its directly linked repository.
func (s Service) ResolveForDevice(ctx context.Context, userID, deviceID string) (*Build, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, errMissingDeviceID
	}
	device, err := s.devices.GetDeviceByID(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.groups.ListGroupsForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	groupIDs := make([]string, 0, len(memberships))
	for _, g := range memberships {
		groupIDs = append(groupIDs, g.ID)
	}

	build, err := s.builds.GetCurrentBuild(ctx, device.RepositoryID, groupIDs)
	if err != nil {
		return nil, err
	}
	version, err := DecodeVersion(build.Version)
	if err != nil {
		return nil, err
	}
	return buildView(build, version), nil
}

// resolveNextVersion implements the version assignment rules: explicit
// versions are validated and used verbatim, otherwise the latest stored
// version's patch is bumped, starting from InitialVersion.
func (s Service) resolveNextVersion(ctx context.Context, repositoryID, explicit string) (string, error) {
	if explicit != "" {
		if _, _, _, err := ParseVersion(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	latest, err := s.builds.GetLatestBuildForRepository(ctx, repositoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InitialVersion, nil
		}
		return "", err
	}
	current, err := DecodeVersion(latest.Version)
	if err != nil {
		return "", err
	}
	next, err := NextPatchVersion(current)
	if err != nil {
		return "", err
	}
	if next == "" {
		return InitialVersion, nil
	}
	return next, nil
}

// resolveGroup picks the group a build is scoped to: the caller's
// explicit choice when present, else the repository's first linked
// group, else none.
func (s Service) resolveGroup(ctx context.Context, userID string, input CreateInput) (*string, error) {
	if groupID := strings.TrimSpace(input.GroupID); groupID != "" {
		group, err := s.groups.GetGroupByID(ctx, groupID, userID)
		if err != nil {
			return nil, err
		}
		return &group.ID, nil
	}
	linked, err := s.groups.ListGroupsForRepository(ctx, input.RepositoryID)
	if err != nil {
		return nil, err
	}
	if len(linked) > 0 {
		return &linked[0].ID, nil
	}
	return nil, nil
}

// notify makes a single best-effort delivery of the firmware event to
// the broker and the user's dashboard stream. Failures never propagate.
func (s Service) notify(userID string, build *domain.FirmwareBuild, version string) {
	event := mqtt.FirmwareEvent{
		ID:           build.ID,
		Version:      version,
		URL:          build.URL,
		RepositoryID: build.RepositoryID,
		GroupID:      build.GroupID,
		Status:       string(build.Status),
		Timestamp:    time.Now().UTC(),
	}
	if s.publisher != nil {
		if err := s.publisher.PublishFirmwareUpdate(event); err != nil {
			s.logger.Warn("firmware event publish failed", "build_id", build.ID, "error", err)
		}
	}
	if s.stream != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			s.stream.Broadcast(userID, payload)
		}
	}
}

func buildView(build *domain.FirmwareBuild, version string) *Build {
	return &Build{
		ID:           build.ID,
		RepositoryID: build.RepositoryID,
		GroupID:      build.GroupID,
		URL:          build.URL,
		Version:      version,
		Status:       build.Status,
		CreatedAt:    build.CreatedAt,
		UpdatedAt:    build.UpdatedAt,
	}
}
