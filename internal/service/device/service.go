package device

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

// Service manages fleet devices.
type Service struct {
	devices repository.DeviceRepository
	repos   repository.RepoRepository
	groups  repository.GroupRepository
	logger  *slog.Logger
}

// New returns a device service.
func New(devices repository.DeviceRepository, repos repository.RepoRepository, groups repository.GroupRepository, logger *slog.Logger) Service {
	return Service{devices: devices, repos: repos, groups: groups, logger: logger}
}

// CreateInput encapsulates device registration attributes.
type CreateInput struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// UpdateInput holds partial device updates.
type UpdateInput struct {
	Name  *string `json:"name"`
	Model *string `json:"model"`
}

var (
	errInvalidName  = errors.New("device name is required")
	errInvalidModel = errors.New("unknown device model")
	errMissingID    = errors.New("device id required")
)

// Create registers a new device for the user. Model defaults to ESP32.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Device, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errInvalidName
	}
	model := domain.DeviceModel(input.Model)
	if input.Model == "" {
		model = domain.ModelESP32
	}
	if !domain.ValidDeviceModel(model) {
		return nil, errInvalidModel
	}
	now := time.Now().UTC()
	device := &domain.Device{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      input.Name,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.devices.CreateDevice(ctx, device); err != nil {
		return nil, err
	}
	s.logger.Info("device registered", "device_id", device.ID, "model", string(model))
	return device, nil
}

// Get returns one of the user's devices.
func (s Service) Get(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, errMissingID
	}
	return s.devices.GetDeviceByID(ctx, deviceID, userID)
}

// List returns all devices the user owns.
func (s Service) List(ctx context.Context, userID string) ([]domain.Device, error) {
	return s.devices.ListDevicesByUser(ctx, userID)
}

// Groups returns the groups a device belongs to.
func (s Service) Groups(ctx context.Context, userID, deviceID string) ([]domain.Group, error) {
	if _, err := s.devices.GetDeviceByID(ctx, deviceID, userID); err != nil {
		return nil, err
	}
	return s.groups.ListGroupsForDevice(ctx, deviceID)
}

// Update applies name/model changes to a device the user owns.
func (s Service) Update(ctx context.Context, userID, deviceID string, input UpdateInput) (*domain.Device, error) {
	device, err := s.devices.GetDeviceByID(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, errInvalidName
		}
		device.Name = *input.Name
	}
	if input.Model != nil {
		model := domain.DeviceModel(*input.Model)
		if !domain.ValidDeviceModel(model) {
			return nil, errInvalidModel
		}
		device.Model = model
	}
	device.UpdatedAt = time.Now().UTC()
	if err := s.devices.UpdateDevice(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// Delete removes a device the user owns.
func (s Service) Delete(ctx context.Context, userID, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return errMissingID
	}
	return s.devices.DeleteDevice(ctx, deviceID, userID)
}

// LinkRepository points the device at a repository's firmware stream.
func (s Service) LinkRepository(ctx context.Context, userID, deviceID, repositoryID string) (*domain.Device, error) {
	device, err := s.devices.GetDeviceByID(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}
	repo, err := s.repos.GetRepositoryByID(ctx, repositoryID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.devices.SetDeviceRepository(ctx, device.ID, &repo.ID); err != nil {
		return nil, err
	}
	device.RepositoryID = &repo.ID
	s.logger.Info("device linked to repository", "device_id", device.ID, "repository_id", repo.ID)
	return device, nil
}

// UnlinkRepository detaches the device from its repository stream.
func (s Service) UnlinkRepository(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	device, err := s.devices.GetDeviceByID(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.devices.SetDeviceRepository(ctx, device.ID, nil); err != nil {
		return nil, err
	}
	device.RepositoryID = nil
	return device, nil
}
