package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer("secret-one", time.Hour, "accountsvc")
	require.NoError(t, err)
	return ti
}

func TestTokenRoundTrip(t *testing.T) {
	ti := newTestIssuer(t)

	token, expires, err := ti.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	sub, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokenIssueRequiresUser(t *testing.T) {
	_, _, err := newTestIssuer(t).Issue("")
	assert.Error(t, err)
}

func TestNewTokenIssuerValidates(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour, "")
	assert.Error(t, err)
	_, err = NewTokenIssuer("s", 0, "")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	ti := newTestIssuer(t)
	issued := time.Now().Add(-2 * time.Hour)
	ti.now = func() time.Time { return issued }

	token, _, err := ti.Issue("user-1")
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := newTestIssuer(t).Issue("user-1")
	require.NoError(t, err)

	other, err := NewTokenIssuer("secret-two", time.Hour, "accountsvc")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongIssuer(t *testing.T) {
	token, _, err := newTestIssuer(t).Issue("user-1")
	require.NoError(t, err)

	other, err := NewTokenIssuer("secret-one", time.Hour, "someone-else")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMalformed(t *testing.T) {
	ti := newTestIssuer(t)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := ti.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	ti := newTestIssuer(t)
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "accountsvc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ti.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret-one"))
	require.NoError(t, err)
	_, err = ti.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutExpiryOrSubject(t *testing.T) {
	ti := newTestIssuer(t)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
		Issuer:  "accountsvc",
	}).SignedString([]byte("secret-one"))
	require.NoError(t, err)
	_, err = ti.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "accountsvc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret-one"))
	require.NoError(t, err)
	_, err = ti.Verify(noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
