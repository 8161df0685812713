package models

import (
	"strings"
	"time"
)

// AccountStatus is the lockout state of an account.
type AccountStatus string

const (
	StatusEnabled AccountStatus = "ENABLED"
	StatusLocked  AccountStatus = "LOCKED"
)

func (s AccountStatus) Valid() bool {
	return s == StatusEnabled || s == StatusLocked
}

// Account is the identity record. PasswordHash and the reset token never
// leave the service layer; handlers only ever see PublicAccount.
type Account struct {
	ID                    string
	Email                 string
	PasswordHash          string
	FailedLoginAttempts   int
	Status                AccountStatus
	PasswordResetToken    *string
	PasswordResetIssuedAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PublicAccount is the response shape of an account.
type PublicAccount struct {
	ID                  string        `json:"id"`
	Email               string        `json:"email"`
	FailedLoginAttempts int           `json:"failedLoginAttempts"`
	Status              AccountStatus `json:"status"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:                  a.ID,
		Email:               a.Email,
		FailedLoginAttempts: a.FailedLoginAttempts,
		Status:              a.Status,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (a *Account) IsLocked() bool {
	return a.Status == StatusLocked
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountUpdate carries the optional fields of a self-service update.
type AccountUpdate struct {
	Email    *string
	Password *string
}
