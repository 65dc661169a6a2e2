package auth

import (
	"crypto/rand"
	"errors"
	"io"
)

const DefaultCodeLength = 6

var ErrInvalidCodeLength = errors.New("code length must be positive")

// GenerateCode returns length uniformly random decimal digits. Leading zeros
// are kept, so "000123" is a valid result.
func GenerateCode(length int) (string, error) {
	return generateCode(rand.Reader, length)
}

func generateCode(r io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidCodeLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256; larger bytes would bias low digits.
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
