package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	AuditRegister      = "register"
	AuditLogin         = "login"
	AuditLoginFailed   = "login_failed"
	AuditCodeSent      = "code_sent"
	AuditPasswordReset = "password_reset"
	AuditEmailChanged  = "email_changed"
)

type AuditEvent struct {
	EventType string                 `json:"eventType"`
	UserID    string                 `json:"userId,omitempty"`
	IP        string                 `json:"ip"`
	UserAgent string                 `json:"userAgent"`
	Timestamp time.Time              `json:"timestamp"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// AuditLogger appends events to capped Redis lists, one per user plus a
// shared list for anonymous events.
type AuditLogger struct {
	Redis  *redis.Client
	MaxLen int64
}

func auditKey(userID string) string {
	if userID == "" {
		return "audit"
	}
	return "audit:" + userID
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := auditKey(e.UserID)
	pipe := a.Redis.Pipeline()
	pipe.RPush(ctx, key, data)
	if a.MaxLen > 0 {
		pipe.LTrim(ctx, key, -a.MaxLen, -1)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n of the newest events recorded for userID.
func (a *AuditLogger) Recent(ctx context.Context, userID string, n int64) ([]AuditEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := a.Redis.LRange(ctx, auditKey(userID), -n, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]AuditEvent, 0, len(raw))
	for _, item := range raw {
		var e AuditEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
