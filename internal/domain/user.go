package domain

import "time"

// User is an account owning devices, groups and repositories.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
