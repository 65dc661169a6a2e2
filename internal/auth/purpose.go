package auth

import (
	"errors"
	"strings"
)

// Purpose tags why a verification code was issued.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposePasswordReset Purpose = "password_reset"
	PurposeEmailChange   Purpose = "email_change"
)

var ErrUnknownPurpose = errors.New("unknown verification code purpose")

// Purposes lists every purpose in declaration order.
func Purposes() []Purpose {
	return []Purpose{PurposeRegister, PurposePasswordReset, PurposeEmailChange}
}

func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PurposeRegister, PurposePasswordReset, PurposeEmailChange:
		return p, nil
	default:
		return "", ErrUnknownPurpose
	}
}

// Owned reports whether codes of this purpose belong to an existing user.
func (p Purpose) Owned() bool {
	switch p {
	case PurposeRegister:
		return false
	case PurposePasswordReset, PurposeEmailChange:
		return true
	default:
		return false
	}
}

func (p Purpose) String() string {
	return string(p)
}
