package email

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"accountsvc/internal/auth"
	"accountsvc/internal/i18n"
)

// Mailer hands a rendered message to a delivery channel.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// DeliveryError reports that a message could not be handed off.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver email to %s: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatcher renders verification code emails and sends them through Mailer.
type Dispatcher struct {
	Mailer  Mailer
	CodeTTL time.Duration
}

func NewDispatcher(mailer Mailer, codeTTL time.Duration) *Dispatcher {
	return &Dispatcher{Mailer: mailer, CodeTTL: codeTTL}
}

func (d *Dispatcher) Send(ctx context.Context, to, code string, purpose auth.Purpose, locale string) error {
	kind, err := kindFor(purpose)
	if err != nil {
		return err
	}

	msg := i18n.CodeEmail(locale, kind, code, d.validMinutes())
	if err := d.Mailer.Send(ctx, to, msg.Subject, msg.Text, msg.HTML); err != nil {
		return &DeliveryError{To: to, Err: err}
	}
	return nil
}

func (d *Dispatcher) validMinutes() int {
	minutes := int(math.Ceil(d.CodeTTL.Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func kindFor(purpose auth.Purpose) (i18n.CodeEmailKind, error) {
	switch purpose {
	case auth.PurposeRegister:
		return i18n.CodeRegister, nil
	case auth.PurposePasswordReset:
		return i18n.CodePasswordReset, nil
	case auth.PurposeEmailChange:
		return i18n.CodeEmailChange, nil
	default:
		return 0, auth.ErrUnknownPurpose
	}
}

// LogMailer stands in for SMTP when no mail server is configured. The
// message body is only written at debug level.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, text, _ string) error {
	m.Logger.Warn("email delivery disabled, message not sent",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	m.Logger.Debug("undelivered email body", zap.String("to", to), zap.String("text", strings.TrimSpace(text)))
	return nil
}
