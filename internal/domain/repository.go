package domain

import "time"

// Repository is a firmware source project whose CI produces builds.
type Repository struct {
	ID        string
	UserID    string
	Name      string
	URL       string
	CreatedAt time.Time
}

// RepositoryWithCounts is the list view of a repository, carrying how
// many devices follow it and how many builds it has produced.
type RepositoryWithCounts struct {
	Repository
	DeviceCount int64
	BuildCount  int64
}

// RepositoryGroup links a repository to a group sharing its firmware stream.
type RepositoryGroup struct {
	RepositoryID string
	GroupID      string
}
