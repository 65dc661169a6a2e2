package account

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxUsernameLen = 64
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validation("invalid email address")
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return validation("username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return validation("username is too long")
	}
	for _, r := range username {
		if unicode.IsSpace(r) || r == '@' || !unicode.IsPrint(r) {
			return validation("username may not contain spaces or '@'")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return validation("password is required")
	}
	if len(password) > maxPasswordBytes {
		return validation("password must be at most 72 bytes")
	}
	return nil
}

func validateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return validation("verification code is required")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidCode
		}
	}
	return nil
}
