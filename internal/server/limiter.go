package server

import (
	"context"
	"time"

	"accountsvc/internal/auth"
)

// Limiter throttles login, code requests and code submissions.
// *auth.RateLimiter satisfies it.
type Limiter interface {
	IsIPBanned(ctx context.Context, ip string) bool
	RegisterLoginFailure(ctx context.Context, ip string) error
	ResetLogin(ctx context.Context, ip string)
	RegisterVerifyAttempt(ctx context.Context, email string) (bool, time.Duration, error)
	ResetVerify(ctx context.Context, email string)
	RegisterResetAttempt(ctx context.Context, email, ip string) (bool, time.Duration, error)
	RegisterRegisterAttempt(ctx context.Context, email, ip string) (bool, time.Duration, error)
	CodeCooldownTTL(ctx context.Context, email string, purpose auth.Purpose) time.Duration
	SetCodeCooldown(ctx context.Context, email string, purpose auth.Purpose)
}

type Auditor interface {
	Log(ctx context.Context, e auth.AuditEvent) error
}

// noLimits is used when no Redis is configured.
type noLimits struct{}

func (noLimits) IsIPBanned(context.Context, string) bool            { return false }
func (noLimits) RegisterLoginFailure(context.Context, string) error { return nil }
func (noLimits) ResetLogin(context.Context, string)                 {}
func (noLimits) RegisterVerifyAttempt(context.Context, string) (bool, time.Duration, error) {
	return false, 0, nil
}
func (noLimits) ResetVerify(context.Context, string) {}
func (noLimits) RegisterResetAttempt(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, nil
}
func (noLimits) RegisterRegisterAttempt(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, nil
}
func (noLimits) CodeCooldownTTL(context.Context, string, auth.Purpose) time.Duration { return 0 }
func (noLimits) SetCodeCooldown(context.Context, string, auth.Purpose)               {}

type noAudit struct{}

func (noAudit) Log(context.Context, auth.AuditEvent) error { return nil }
