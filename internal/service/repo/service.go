package repo

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/sector-iot/sector-platform/internal/domain"
	"github.com/sector-iot/sector-platform/internal/repository"
)

// Service manages firmware source repositories.
type Service struct {
	repos  repository.RepoRepository
	logger *slog.Logger
}

// New returns a repository service.
func New(repos repository.RepoRepository, logger *slog.Logger) Service {
	return Service{repos: repos, logger: logger}
}

// CreateInput encapsulates repository creation attributes.
type CreateInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UpdateInput holds partial repository updates.
type UpdateInput struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

var (
	errInvalidName = errors.New("repository name is required")
	errInvalidURL  = errors.New("repository url must be a valid URL")
	errMissingID   = errors.New("repository id required")
)

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errInvalidURL
	}
	return nil
}

// Create registers a new repository for the user.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Repository, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errInvalidName
	}
	if err := validateURL(input.URL); err != nil {
		return nil, err
	}
	repo := &domain.Repository{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      input.Name,
		URL:       input.URL,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repos.CreateRepository(ctx, repo); err != nil {
		return nil, err
	}
	s.logger.Info("repository created", "repository_id", repo.ID)
	return repo, nil
}

// Get returns one of the user's repositories.
func (s Service) Get(ctx context.Context, userID, repositoryID string) (*domain.Repository, error) {
	if strings.TrimSpace(repositoryID) == "" {
		return nil, errMissingID
	}
	return s.repos.GetRepositoryByID(ctx, repositoryID, userID)
}

// List returns all repositories the user owns, each annotated with its
// device and build totals.
func (s Service) List(ctx context.Context, userID string) ([]domain.RepositoryWithCounts, error) {
	return s.repos.ListRepositoriesWithCounts(ctx, userID)
}

// Update applies name/url changes to a repository the user owns.
func (s Service) Update(ctx context.Context, userID, repositoryID string, input UpdateInput) (*domain.Repository, error) {
	repo, err := s.repos.GetRepositoryByID(ctx, repositoryID, userID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, errInvalidName
		}
		repo.Name = *input.Name
	}
	if input.URL != nil {
		if err := validateURL(*input.URL); err != nil {
			return nil, err
		}
		repo.URL = *input.URL
	}
	if err := s.repos.UpdateRepository(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// Delete removes a repository the user owns.
func (s Service) Delete(ctx context.Context, userID, repositoryID string) error {
	if strings.TrimSpace(repositoryID) == "" {
		return errMissingID
	}
	return s.repos.DeleteRepository(ctx, repositoryID, userID)
}
