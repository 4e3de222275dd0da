package group

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

// Service manages device groups and their associations.
type Service struct {
	groups  repository.GroupRepository
	devices repository.DeviceRepository
	repos   repository.RepoRepository
	logger  *slog.Logger
}

// New returns a group service.
func New(groups repository.GroupRepository, devices repository.DeviceRepository, repos repository.RepoRepository, logger *slog.Logger) Service {
	return Service{groups: groups, devices: devices, repos: repos, logger: logger}
}

// CreateInput encapsulates group creation attributes.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateInput holds partial group updates.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

var (
	errInvalidName = errors.New("group name is required")
	errMissingID   = errors.New("group id required")
)

// Create registers a new group for the user.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Group, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errInvalidName
	}
	group := &domain.Group{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	s.logger.Info("group created", "group_id", group.ID)
	return group, nil
}

// Get returns one of the user's groups.
func (s Service) Get(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, errMissingID
	}
	return s.groups.GetGroupByID(ctx, groupID, userID)
}

// List returns all groups the user owns.
func (s Service) List(ctx context.Context, userID string) ([]domain.Group, error) {
	return s.groups.ListGroupsByUser(ctx, userID)
}

// Devices returns the member devices of one of the user's groups.
func (s Service) Devices(ctx context.Context, userID, groupID string) ([]domain.Device, error) {
	if _, err := s.groups.GetGroupByID(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.groups.ListDevicesForGroup(ctx, groupID)
}

// Update applies name/description changes to a group the user owns.
func (s Service) Update(ctx context.Context, userID, groupID string, input UpdateInput) (*domain.Group, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, errInvalidName
		}
		group.Name = *input.Name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}
	if err := s.groups.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Delete removes a group the user owns.
func (s Service) Delete(ctx context.Context, userID, groupID string) error {
	if strings.TrimSpace(groupID) == "" {
		return errMissingID
	}
	return s.groups.DeleteGroup(ctx, groupID, userID)
}

// AddDevice puts one of the user's devices into one of their groups.
// Both sides are ownership-checked before the membership is written.
func (s Service) AddDevice(ctx context.Context, userID, groupID, deviceID string) error {
	if _, err := s.groups.GetGroupByID(ctx, groupID, userID); err != nil {
		return err
	}
	if _, err := s.devices.GetDeviceByID(ctx, deviceID, userID); err != nil {
		return err
	}
	if err := s.groups.AddDeviceToGroup(ctx, groupID, deviceID); err != nil {
		return err
	}
	s.logger.Info("device added to group", "group_id", groupID, "device_id", deviceID)
	return nil
}

// RemoveDevice takes a device out of a group the user owns.
func (s Service) RemoveDevice(ctx context.Context, userID, groupID, deviceID string) error {
	if _, err := s.groups.GetGroupByID(ctx, groupID, userID); err != nil {
		return err
	}
	return s.groups.RemoveDeviceFromGroup(ctx, groupID, deviceID)
}

// LinkRepository subscribes the group to a repository's firmware stream.
func (s Service) LinkRepository(ctx context.Context, userID, groupID, repositoryID string) error {
	if _, err := s.groups.GetGroupByID(ctx, groupID, userID); err != nil {
		return err
	}
	if _, err := s.repos.GetRepositoryByID(ctx, repositoryID, userID); err != nil {
		return err
	}
	if err := s.groups.LinkRepositoryToGroup(ctx, repositoryID, groupID); err != nil {
		return err
	}
	s.logger.Info("repository linked to group", "group_id", groupID, "repository_id", repositoryID)
	return nil
}

// UnlinkRepository unsubscribes the group from a repository's firmware
// stream. Only group ownership is checked: the repository may already
// be deleted or transferred and the stale link must still be removable.
func (s Service) UnlinkRepository(ctx context.Context, userID, groupID, repositoryID string) error {
	if _, err := s.groups.GetGroupByID(ctx, groupID, userID); err != nil {
		return err
	}
	if err := s.groups.UnlinkRepositoryFromGroup(ctx, repositoryID, groupID); err != nil {
		return err
	}
	s.logger.Info("repository unlinked from group", "group_id", groupID, "repository_id", repositoryID)
	return nil
}
