package auth

import (
	"context"
	"fmt"
)

// Credentials owns password hashing and user record mutation.
type Credentials struct {
	Users  UserStore
	Hasher PasswordHasher
}

func NewCredentials(users UserStore, hasher PasswordHasher) *Credentials {
	if hasher == nil {
		hasher = NewBcryptHasher()
	}
	return &Credentials{Users: users, Hasher: hasher}
}

// CreateAccount rejects taken usernames and emails before inserting. The
// lookups only short-circuit the common case; the store's unique
// constraints decide concurrent inserts.
func (c *Credentials) CreateAccount(ctx context.Context, username, email, rawPassword string) (*User, error) {
	existing, err := c.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	existing, err = c.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hashed, err := c.Hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return c.Users.CreateUser(ctx, NewUser{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
	})
}

func (c *Credentials) VerifyPassword(user *User, rawPassword string) bool {
	if user == nil {
		return false
	}
	return c.Hasher.Compare(user.PasswordHash, rawPassword)
}

func (c *Credentials) UpdatePassword(ctx context.Context, userID, newRawPassword string) error {
	hashed, err := c.Hasher.Hash(newRawPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return c.Users.UpdatePassword(ctx, userID, hashed)
}

func (c *Credentials) UpdateEmail(ctx context.Context, userID, newEmail string) error {
	return c.Users.UpdateEmail(ctx, userID, newEmail)
}

func (c *Credentials) FindByUsernameOrEmail(ctx context.Context, identifier string) (*User, error) {
	return c.Users.FindByUsernameOrEmail(ctx, identifier)
}

func (c *Credentials) FindByEmail(ctx context.Context, email string) (*User, error) {
	return c.Users.FindByEmail(ctx, email)
}

func (c *Credentials) FindByID(ctx context.Context, id string) (*User, error) {
	return c.Users.FindByID(ctx, id)
}
