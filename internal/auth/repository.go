package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"

	usersUsernameKey = "users_username_key"
	usersEmailKey    = "users_email_key"
)

const userColumns = `"id"::text,"username","email","password_hash","created_at","updated_at"`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, u NewUser) (*User, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	row := r.DB.QueryRow(ctx, `
		INSERT INTO users ("id","username","email","password_hash","created_at","updated_at")
		VALUES ($1,$2,$3,$4,$5,$5)
		RETURNING `+userColumns,
		id, u.Username, NormalizeEmail(u.Email), u.PasswordHash, now)

	user, err := scanUser(row)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE "id"=$1`, id)
	return findOne(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE "email"=$1`, NormalizeEmail(email))
	return findOne(row)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE "username"=$1`, username)
	return findOne(row)
}

// FindByUsernameOrEmail prefers an exact username match over an email match.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "username"=$1 OR "email"=$2
		ORDER BY ("username"=$1) DESC
		LIMIT 1
	`, identifier, NormalizeEmail(identifier))
	return findOne(row)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE users
		SET "password_hash"=$1, "updated_at"=NOW()
		WHERE "id"=$2
	`, passwordHash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateEmail(ctx context.Context, userID, email string) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE users
		SET "email"=$1, "updated_at"=NOW()
		WHERE "id"=$2
	`, NormalizeEmail(email), userID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func findOne(row pgx.Row) (*User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usersUsernameKey:
		return ErrDuplicateUsername
	case usersEmailKey:
		return ErrDuplicateEmail
	default:
		return err
	}
}
