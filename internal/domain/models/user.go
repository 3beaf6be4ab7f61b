package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. PassHash is a bcrypt hash and never leaves
// the service layer.
type User struct {
	ID        uuid.UUID
	Name      string
	Lastname  string
	Username  string
	Email     string
	PassHash  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
