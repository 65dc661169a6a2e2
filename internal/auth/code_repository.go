package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// matchCondition selects unused, unexpired codes for
// ($1 purpose, $2 code hash, $3 owner or NULL, $4 email or empty, $5 now).
const matchCondition = `
	"purpose"=$1
	AND "code_hash"=$2
	AND "user_id" IS NOT DISTINCT FROM $3::uuid
	AND ($4::text = '' OR "email"=$4)
	AND "is_used"=FALSE
	AND "expires_at" > $5
`

type CodeRepository struct {
	DB  *pgxpool.Pool
	Now func() time.Time
}

func NewCodeRepository(db *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{DB: db, Now: time.Now}
}

func (r *CodeRepository) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

func (r *CodeRepository) Issue(ctx context.Context, p IssueParams) (*VerificationCode, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := r.now()
	vc := &VerificationCode{
		ID:        uuid.NewString(),
		Purpose:   p.Purpose,
		UserID:    p.UserID,
		Email:     NormalizeEmail(p.Email),
		Code:      p.Code,
		CodeHash:  HashString(p.Code),
		ExpiresAt: now.Add(p.TTL),
		CreatedAt: now,
	}

	_, err := r.DB.Exec(ctx, `
		INSERT INTO verification_codes ("id","code_hash","purpose","user_id","email","expires_at","is_used","created_at")
		VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7)
	`, vc.ID, vc.CodeHash, string(vc.Purpose), vc.UserID, vc.Email, vc.ExpiresAt, vc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// Consume locks the newest matching row and flips it in the same statement,
// so concurrent callers presenting the same code cannot both succeed.
func (r *CodeRepository) Consume(ctx context.Context, m CodeMatch) (bool, error) {
	var id string
	err := r.DB.QueryRow(ctx, `
		UPDATE verification_codes
		SET "is_used"=TRUE
		WHERE "id" = (
			SELECT "id" FROM verification_codes
			WHERE `+matchCondition+`
			ORDER BY "created_at" DESC
			LIMIT 1
			FOR UPDATE
		)
		AND "is_used"=FALSE
		RETURNING "id"::text
	`, m.args(r.now())...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *CodeRepository) Check(ctx context.Context, m CodeMatch) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM verification_codes
			WHERE `+matchCondition+`
		)
	`, m.args(r.now())...).Scan(&exists)
	return exists, err
}

func (m CodeMatch) args(now time.Time) []any {
	return []any{string(m.Purpose), HashString(m.Code), m.UserID, NormalizeEmail(m.Email), now}
}
