package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	Redis *redis.Client
}

const (
	loginMaxAttempts         = 5
	loginAttemptTTL          = 10 * time.Minute
	loginBanTTL              = 1 * time.Hour
	verifyMaxAttempts        = 5
	verifyAttemptTTL         = 10 * time.Minute
	resetMaxAttempts         = 5
	resetAttemptTTL          = 15 * time.Minute
	registerMaxAttemptsIP    = 10
	registerAttemptTTLIP     = 30 * time.Minute
	registerMaxAttemptsEmail = 3
	registerAttemptTTLEmail  = 30 * time.Minute

	// CodeCooldown is the minimum gap between two codes for one address and purpose.
	CodeCooldown = 60 * time.Second
)

type limit struct {
	key string
	max int64
	ttl time.Duration
}

func loginAttemptKey(ip string) string { return "login_attempts:" + ip }
func loginBanKey(ip string) string     { return "login_ban:" + ip }

func verifyAttemptKey(email string) string {
	return "verify_attempts:" + NormalizeEmail(email)
}

func codeCooldownKey(email string, purpose Purpose) string {
	return "code_cooldown:" + string(purpose) + ":" + NormalizeEmail(email)
}

func optionalKey(prefix, val string) string {
	if strings.TrimSpace(val) == "" {
		return ""
	}
	return prefix + strings.ToLower(val)
}

func (r *RateLimiter) IsIPBanned(ctx context.Context, ip string) bool {
	exists, _ := r.Redis.Exists(ctx, loginBanKey(ip)).Result()
	return exists == 1
}

func (r *RateLimiter) RegisterLoginFailure(ctx context.Context, ip string) error {
	key := loginAttemptKey(ip)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, loginAttemptTTL)
	}
	if attempts >= loginMaxAttempts {
		r.Redis.Set(ctx, loginBanKey(ip), "1", loginBanTTL)
		r.Redis.Expire(ctx, key, loginBanTTL)
	}
	return nil
}

func (r *RateLimiter) ResetLogin(ctx context.Context, ip string) {
	r.Redis.Del(ctx, loginAttemptKey(ip))
}

// RegisterVerifyAttempt counts a code submission for email. It reports
// locked once more than verifyMaxAttempts were made inside the window.
func (r *RateLimiter) RegisterVerifyAttempt(ctx context.Context, email string) (bool, time.Duration, error) {
	return r.hit(ctx, limit{verifyAttemptKey(email), verifyMaxAttempts, verifyAttemptTTL})
}

func (r *RateLimiter) ResetVerify(ctx context.Context, email string) {
	r.Redis.Del(ctx, verifyAttemptKey(email))
}

func (r *RateLimiter) RegisterResetAttempt(ctx context.Context, email, ip string) (bool, time.Duration, error) {
	return r.hit(ctx,
		limit{optionalKey("reset_attempts:", email), resetMaxAttempts, resetAttemptTTL},
		limit{optionalKey("reset_attempts_ip:", ip), resetMaxAttempts, resetAttemptTTL},
	)
}

func (r *RateLimiter) RegisterRegisterAttempt(ctx context.Context, email, ip string) (bool, time.Duration, error) {
	return r.hit(ctx,
		limit{optionalKey("register_attempts_ip:", ip), registerMaxAttemptsIP, registerAttemptTTLIP},
		limit{optionalKey("register_attempts_email:", email), registerMaxAttemptsEmail, registerAttemptTTLEmail},
	)
}

// CodeCooldownTTL returns how long until another code may be sent.
func (r *RateLimiter) CodeCooldownTTL(ctx context.Context, email string, purpose Purpose) time.Duration {
	ttl, err := r.Redis.TTL(ctx, codeCooldownKey(email, purpose)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func (r *RateLimiter) SetCodeCooldown(ctx context.Context, email string, purpose Purpose) {
	r.Redis.Set(ctx, codeCooldownKey(email, purpose), "1", CodeCooldown)
}

func (r *RateLimiter) hit(ctx context.Context, limits ...limit) (bool, time.Duration, error) {
	locked := false
	var ttlMax time.Duration

	for _, l := range limits {
		if l.key == "" {
			continue
		}
		attempts, err := r.Redis.Incr(ctx, l.key).Result()
		if err != nil {
			return false, 0, err
		}
		if attempts == 1 {
			r.Redis.Expire(ctx, l.key, l.ttl)
		}
		if attempts > l.max {
			locked = true
		}
		if ttl, _ := r.Redis.TTL(ctx, l.key).Result(); ttl > ttlMax {
			ttlMax = ttl
		}
	}

	return locked, ttlMax, nil
}
