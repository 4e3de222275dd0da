package domain

import "time"

// Build statuses for firmware builds.
const (
	BuildStatusBuilding = "BUILDING"
	BuildStatusSuccess  = "SUCCESS"
	BuildStatusFailed   = "FAILED"
)

// ValidBuildStatus reports whether s is a known build status.
func ValidBuildStatus(s string) bool {
	switch s {
	case BuildStatusBuilding, BuildStatusSuccess, BuildStatusFailed:
		return true
	}
	return false
}

// FirmwareBuild is one compiled firmware artifact and its lifecycle state.
// Version holds the packed numeric encoding, not the semantic string.
type FirmwareBuild struct {
	ID           string
	RepositoryID string
	GroupID      *string
	URL          *string
	Version      int64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FirmwareBuildUpdate captures mutable fields for a build. Nil means
// leave the field unchanged.
type FirmwareBuildUpdate struct {
	BuildID string
	URL     *string
	Status  *string
}
