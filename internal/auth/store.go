package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidTTL        = errors.New("code ttl must be positive")
)

// UserStore persists user records. Find methods return (nil, nil) when no
// record matches. Uniqueness of username and email is enforced by the store.
type UserStore interface {
	CreateUser(ctx context.Context, u NewUser) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateEmail(ctx context.Context, userID, email string) error
}

type IssueParams struct {
	Purpose Purpose
	UserID  *string
	Email   string
	Code    string
	TTL     time.Duration
}

// CodeMatch selects a verification code. A nil UserID only matches codes
// without an owner. An empty Email matches any target address.
type CodeMatch struct {
	Purpose Purpose
	UserID  *string
	Email   string
	Code    string
}

// CodeStore persists verification code issuance and consumption.
type CodeStore interface {
	Issue(ctx context.Context, p IssueParams) (*VerificationCode, error)
	// Consume flips a matching, unused, unexpired code to used in one step.
	// It reports false when nothing matched.
	Consume(ctx context.Context, m CodeMatch) (bool, error)
	// Check reports whether Consume would currently succeed, without using the code.
	Check(ctx context.Context, m CodeMatch) (bool, error)
}

// NormalizeEmail is the canonical form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p IssueParams) validate() error {
	if _, err := ParsePurpose(string(p.Purpose)); err != nil {
		return err
	}
	if p.TTL <= 0 {
		return ErrInvalidTTL
	}
	if p.Purpose.Owned() != (p.UserID != nil) {
		return errors.New("code owner does not match purpose")
	}
	if strings.TrimSpace(p.Code) == "" {
		return errors.New("code is required")
	}
	return nil
}
