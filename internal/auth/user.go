package auth

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
}

// VerificationCode is one issuance of a one-time code. Code holds the clear
// value only on the record returned by Issue; stores keep CodeHash.
type VerificationCode struct {
	ID        string
	Purpose   Purpose
	UserID    *string
	Email     string
	Code      string
	CodeHash  string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Valid reports whether the code is unused and unexpired at now.
func (v VerificationCode) Valid(now time.Time) bool {
	return !v.Used && v.ExpiresAt.After(now)
}
