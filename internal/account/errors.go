package account

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that map it onto a transport status.
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindConflict       Kind = "CONFLICT"
	KindNotFound       Kind = "NOT_FOUND"
	KindAuthentication Kind = "UNAUTHENTICATED"
	KindDelivery       Kind = "DELIVERY"
	KindInternal       Kind = "INTERNAL"
)

const (
	MsgInvalidCode        = "invalid or expired verification code"
	MsgInvalidCredentials = "invalid username/email or password"
	MsgUnauthenticated    = "authentication required"
	MsgInternal           = "internal server error"
)

// Error is returned by every Service operation. Message is safe to show to
// clients; Err holds the underlying cause and is never shown.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and message, so sentinel
// values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: MsgInvalidCredentials}
	ErrInvalidCode        = &Error{Kind: KindAuthentication, Message: MsgInvalidCode}
	ErrUnauthenticated    = &Error{Kind: KindAuthentication, Message: MsgUnauthenticated}
)

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func conflict(msg string, cause error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: cause}
}

func notFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func internal(op string, cause error) error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: fmt.Errorf("%s: %w", op, cause)}
}

func delivery(cause error) error {
	return &Error{Kind: KindDelivery, Message: "failed to send verification email", Err: cause}
}
