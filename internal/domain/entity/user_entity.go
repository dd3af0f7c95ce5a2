package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the account domain.
// PasswordHash is only ever produced by the password hasher.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Name          string
	Institution   string
	Role          Role
	MaterialCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeEmail is applied before every store write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
