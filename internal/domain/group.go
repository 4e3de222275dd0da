package domain

import "time"

// Group is a named collection of devices optionally sharing a firmware stream.
type Group struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
}
