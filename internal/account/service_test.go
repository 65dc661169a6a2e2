package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"accountsvc/internal/auth"
)

type sentCode struct {
	To      string
	Code    string
	Purpose auth.Purpose
	Locale  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, to, code string, purpose auth.Purpose, locale string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{To: to, Code: code, Purpose: purpose, Locale: locale})
	return nil
}

func (f *fakeNotifier) last(t *testing.T) sentCode {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no code was sent")
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	svc    *Service
	store  *auth.MemoryStore
	mail   *fakeNotifier
	tokens *auth.TokenIssuer
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	store := auth.NewMemoryStore()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour, "accountsvc-test")
	require.NoError(t, err)

	mail := &fakeNotifier{}
	creds := auth.NewCredentials(store, &auth.BcryptHasher{Cost: 4})
	svc := NewService(creds, store, tokens, mail, zap.NewNop(), opts)

	return &fixture{svc: svc, store: store, mail: mail, tokens: tokens}
}

func (f *fixture) register(t *testing.T, username, email, password string) *Session {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: email, Purpose: auth.PurposeRegister}))
	sess, err := f.svc.Register(ctx, RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		Code:     f.mail.last(t).Code,
	})
	require.NoError(t, err)
	return sess
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
}

func TestRegisterWithCodeThenProfile(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	sess := f.register(t, "alice", "alice@x.com", "pw1")
	assert.Equal(t, "alice", sess.User.Username)
	assert.Equal(t, "alice@x.com", sess.User.Email)
	assert.NotEmpty(t, sess.Token)

	sent := f.mail.last(t)
	assert.Equal(t, "alice@x.com", sent.To)
	assert.Equal(t, auth.PurposeRegister, sent.Purpose)
	assert.Len(t, sent.Code, auth.DefaultCodeLength)

	user, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	profile, err := f.svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: user.ID, Username: "alice", Email: "alice@x.com"}, *profile)
}

func TestRegisterRejectsMissingOrWrongCode(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: "bob@x.com", Purpose: auth.PurposeRegister}))
	code := f.mail.last(t).Code

	_, err := f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@x.com", Password: "pw"})
	assertKind(t, err, KindValidation)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@x.com", Password: "pw", Code: wrong})
	assert.ErrorIs(t, err, ErrInvalidCode)

	// Register codes are bound to the address they were sent to.
	_, err = f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "other@x.com", Password: "pw", Code: code})
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@x.com", Password: "pw", Code: code})
	require.NoError(t, err)
}

func TestRegisterWithoutEmailVerification(t *testing.T) {
	f := newFixture(t, Options{NoEmailVerify: true})

	sess, err := f.svc.Register(context.Background(), RegisterInput{Username: "carol", Email: " Carol@X.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "carol@x.com", sess.User.Email)
	assert.Empty(t, f.mail.sent)
}

func TestRegisterDuplicates(t *testing.T) {
	f := newFixture(t, Options{NoEmailVerify: true})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@x.com", Password: "pw"})
	assertKind(t, err, KindConflict)
	assert.ErrorIs(t, err, auth.ErrDuplicateUsername)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@x.com", Password: "pw"})
	assertKind(t, err, KindConflict)
	assert.ErrorIs(t, err, auth.ErrDuplicateEmail)

	// Usernames are case-sensitive.
	_, err = f.svc.Register(ctx, RegisterInput{Username: "Alice", Email: "alice3@x.com", Password: "pw"})
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, Options{NoEmailVerify: true})
	ctx := context.Background()

	cases := []RegisterInput{
		{Username: "", Email: "a@x.com", Password: "pw"},
		{Username: "with space", Email: "a@x.com", Password: "pw"},
		{Username: "a@b", Email: "a@x.com", Password: "pw"},
		{Username: "dave", Email: "not-an-email", Password: "pw"},
		{Username: "dave", Email: "a@x.com", Password: "   "},
	}
	for _, in := range cases {
		_, err := f.svc.Register(ctx, in)
		assertKind(t, err, KindValidation)
	}
}

func TestRequestCodeRules(t *testing.T) {
	f := newFixture(t, Options{NoEmailVerify: true})
	ctx := context.Background()

	sess, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "pw"})
	require.NoError(t, err)
	actor, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	err = f.svc.RequestCode(ctx, CodeRequest{Email: "alice@x.com", Purpose: auth.PurposeRegister})
	assertKind(t, err, KindConflict)

	err = f.svc.RequestCode(ctx, CodeRequest{Email: "nobody@x.com", Purpose: auth.PurposePasswordReset})
	assertKind(t, err, KindNotFound)

	err = f.svc.RequestCode(ctx, CodeRequest{Email: "new@x.com", Purpose: auth.PurposeEmailChange})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	err = f.svc.RequestCode(ctx, CodeRequest{Email: "alice@x.com", Purpose: auth.PurposeEmailChange, Actor: actor})
	assertKind(t, err, KindConflict)

	err = f.svc.RequestCode(ctx, CodeRequest{Email: "alice@x.com", Purpose: auth.Purpose("bogus")})
	assertKind(t, err, KindValidation)

	err = f.svc.RequestCode(ctx, CodeRequest{Email: "", Purpose: auth.PurposeRegister})
	assertKind(t, err, KindValidation)
}

func TestRequestCodeEveryPurposeSends(t *testing.T) {
	f := newFixture(t, Options{NoEmailVerify: true})
	ctx := context.Background()

	sess, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "pw"})
	require.NoError(t, err)
	actor, err := f.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	targets := map[auth.Purpose]string{
		auth.PurposeRegister:      "fresh@x.com",
		auth.PurposePasswordReset: "alice@x.com",
		auth.PurposeEmailChange:   "moved@x.com",
	}
	for _, purpose := range auth.Purposes() {
		to, ok := targets[purpose]
		require.True(t, ok, "no target for %s", purpose)

		require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: to, Purpose: purpose, Actor: actor, Locale: "de"}))
		sent := f.mail.last(t)
		assert.Equal(t, to, sent.To)
		assert.Equal(t, purpose, sent.Purpose)
		assert.Equal(t, "de", sent.Locale)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw1")

	_, errUnknown := f.svc.Login(ctx, "nobody", "pw1")
	_, errWrong := f.svc.Login(ctx, "alice", "wrong")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, KindOf(errUnknown), KindOf(errWrong))
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)

	byName, err := f.svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	byEmail, err := f.svc.Login(ctx, "ALICE@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, byName.User, byEmail.User)

	_, err = f.svc.Login(ctx, "", "pw1")
	assertKind(t, err, KindValidation)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw1")

	require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: "alice@x.com", Purpose: auth.PurposePasswordReset}))
	code := f.mail.last(t).Code

	// verify-code leaves the code usable for the reset itself.
	require.NoError(t, f.svc.VerifyCode(ctx, CodeCheck{Email: "alice@x.com", Code: code, Purpose: auth.PurposePasswordReset}))
	require.NoError(t, f.svc.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: code, NewPassword: "pw2"}))

	_, err := f.svc.Login(ctx, "alice", "pw2")
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.svc.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: code, NewPassword: "pw3"})
	assert.ErrorIs(t, err, ErrInvalidCode)
	err = f.svc.VerifyCode(ctx, CodeCheck{Email: "alice@x.com", Code: code, Purpose: auth.PurposePasswordReset})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.svc.ResetPassword(context.Background(), ResetInput{Email: "ghost@x.com", Code: "123456", NewPassword: "pw"})
	assertKind(t, err, KindNotFound)
}

func TestExpiredCodeIsRejected(t *testing.T) {
	f := newFixture(t, Options{CodeTTL: time.Minute})
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw1")

	now := time.Now()
	f.store.Now = func() time.Time { return now }

	require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: "alice@x.com", Purpose: auth.PurposePasswordReset}))
	code := f.mail.last(t).Code

	now = now.Add(2 * time.Minute)

	err := f.svc.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: code, NewPassword: "pw2"})
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, MsgInvalidCode, err.Error())
}

func TestDeliveryFailureKeepsCode(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "pw1")

	f.svc.generate = func(int) (string, error) { return "424242", nil }
	f.mail.err = errors.New("smtp down")

	err := f.svc.RequestCode(ctx, CodeRequest{Email: "alice@x.com", Purpose: auth.PurposePasswordReset})
	assertKind(t, err, KindDelivery)

	require.NoError(t, f.svc.ResetPassword(ctx, ResetInput{Email: "alice@x.com", Code: "424242", NewPassword: "pw2"}))
}

func TestChangeEmailFlow(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	alice := f.register(t, "alice", "alice@x.com", "pw1")
	bob := f.register(t, "bob", "bob@x.com", "pw1")

	actor, err := f.svc.Authenticate(ctx, alice.Token)
	require.NoError(t, err)
	other, err := f.svc.Authenticate(ctx, bob.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: "alice@new.com", Purpose: auth.PurposeEmailChange, Actor: actor}))
	sent := f.mail.last(t)
	assert.Equal(t, "alice@new.com", sent.To)

	err = f.svc.ChangeEmail(ctx, nil, ChangeEmailInput{NewEmail: "alice@new.com", Code: sent.Code})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Another account cannot use alice's code.
	err = f.svc.ChangeEmail(ctx, other, ChangeEmailInput{NewEmail: "alice@new.com", Code: sent.Code})
	assert.ErrorIs(t, err, ErrInvalidCode)

	// The code is bound to the address it was sent to.
	err = f.svc.ChangeEmail(ctx, actor, ChangeEmailInput{NewEmail: "elsewhere@new.com", Code: sent.Code})
	assert.ErrorIs(t, err, ErrInvalidCode)

	require.NoError(t, f.svc.VerifyCode(ctx, CodeCheck{Email: "alice@new.com", Code: sent.Code, Purpose: auth.PurposeEmailChange, Actor: actor}))
	require.NoError(t, f.svc.ChangeEmail(ctx, actor, ChangeEmailInput{NewEmail: "alice@new.com", Code: sent.Code}))

	profile, err := f.svc.Profile(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@new.com", profile.Email)

	_, err = f.svc.Login(ctx, "alice@new.com", "pw1")
	assert.NoError(t, err)

	err = f.svc.ChangeEmail(ctx, other, ChangeEmailInput{NewEmail: "alice@new.com", Code: "123456"})
	assertKind(t, err, KindConflict)
}

func TestVerifyCodeRules(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, f.svc.RequestCode(ctx, CodeRequest{Email: "new@x.com", Purpose: auth.PurposeRegister}))
	code := f.mail.last(t).Code

	require.NoError(t, f.svc.VerifyCode(ctx, CodeCheck{Email: "new@x.com", Code: code, Purpose: auth.PurposeRegister}))
	require.NoError(t, f.svc.VerifyCode(ctx, CodeCheck{Email: "new@x.com", Code: code, Purpose: auth.PurposeRegister}))

	err := f.svc.VerifyCode(ctx, CodeCheck{Email: "new@x.com", Code: "abc", Purpose: auth.PurposeRegister})
	assert.ErrorIs(t, err, ErrInvalidCode)

	err = f.svc.VerifyCode(ctx, CodeCheck{Email: "new@x.com", Code: code, Purpose: auth.PurposeEmailChange})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	err = f.svc.VerifyCode(ctx, CodeCheck{Email: "ghost@x.com", Code: code, Purpose: auth.PurposePasswordReset})
	assertKind(t, err, KindNotFound)

	err = f.svc.VerifyCode(ctx, CodeCheck{Email: "new@x.com", Code: code, Purpose: auth.Purpose("nope")})
	assertKind(t, err, KindValidation)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	token, _, err := f.tokens.Issue("00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.Profile(ctx, "missing")
	assertKind(t, err, KindNotFound)
}
