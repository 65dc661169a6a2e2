package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"accountsvc/internal/auth"
)

// Notifier delivers a verification code to an email address.
type Notifier interface {
	Send(ctx context.Context, to, code string, purpose auth.Purpose, locale string) error
}

type Options struct {
	CodeLength int
	CodeTTL    time.Duration
	// NoEmailVerify lets Register proceed without a register code.
	NoEmailVerify bool
}

// Profile is the public view of a user.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func profileOf(u *auth.User) Profile {
	return Profile{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Session is the result of a successful register or login.
type Session struct {
	User      Profile
	Token     string
	ExpiresAt time.Time
}

type CodeRequest struct {
	Email   string
	Purpose auth.Purpose
	// Actor is the authenticated caller, required for email_change.
	Actor  *auth.User
	Locale string
}

type CodeCheck struct {
	Email   string
	Code    string
	Purpose auth.Purpose
	Actor   *auth.User
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Code     string
}

type ResetInput struct {
	Email       string
	Code        string
	NewPassword string
}

type ChangeEmailInput struct {
	NewEmail string
	Code     string
}

// Service runs the register, login, password reset and email change flows.
// Every privileged mutation is gated by exactly one code consumption.
type Service struct {
	creds  *auth.Credentials
	codes  auth.CodeStore
	tokens *auth.TokenIssuer
	notify Notifier
	log    *zap.Logger
	opts   Options

	generate func(length int) (string, error)

	dummyOnce sync.Once
	dummyHash string
}

func NewService(creds *auth.Credentials, codes auth.CodeStore, tokens *auth.TokenIssuer, notify Notifier, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = auth.DefaultCodeLength
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	return &Service{
		creds:    creds,
		codes:    codes,
		tokens:   tokens,
		notify:   notify,
		log:      logger,
		opts:     opts,
		generate: auth.GenerateCode,
	}
}

// RequestCode issues a fresh code for req.Purpose and emails it. Older
// outstanding codes stay valid until they expire. When delivery fails the
// issued code is kept and a Delivery error is returned.
func (s *Service) RequestCode(ctx context.Context, req CodeRequest) error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	email := auth.NormalizeEmail(req.Email)

	var owner *string
	switch req.Purpose {
	case auth.PurposeRegister:
		if err := s.ensureEmailFree(ctx, email); err != nil {
			return err
		}
	case auth.PurposePasswordReset:
		user, err := s.userByEmail(ctx, email)
		if err != nil {
			return err
		}
		owner = &user.ID
	case auth.PurposeEmailChange:
		if req.Actor == nil {
			return ErrUnauthenticated
		}
		if err := s.ensureEmailFree(ctx, email); err != nil {
			return err
		}
		owner = &req.Actor.ID
	default:
		return validation("invalid verification code type")
	}

	code, err := s.generate(s.opts.CodeLength)
	if err != nil {
		return internal("generate code", err)
	}

	if _, err := s.codes.Issue(ctx, auth.IssueParams{
		Purpose: req.Purpose,
		UserID:  owner,
		Email:   email,
		Code:    code,
		TTL:     s.opts.CodeTTL,
	}); err != nil {
		return internal("issue code", err)
	}

	if err := s.notify.Send(ctx, email, code, req.Purpose, req.Locale); err != nil {
		s.log.Warn("verification email not delivered",
			zap.String("purpose", req.Purpose.String()),
			zap.Error(err),
		)
		return delivery(err)
	}

	s.log.Info("verification code sent", zap.String("purpose", req.Purpose.String()))
	return nil
}

// VerifyCode reports whether c would be accepted by the matching privileged
// call. It does not use the code up.
func (s *Service) VerifyCode(ctx context.Context, c CodeCheck) error {
	if err := validateEmail(c.Email); err != nil {
		return err
	}
	if err := validateCode(c.Code); err != nil {
		return err
	}

	match, err := s.matchFor(ctx, c.Purpose, c.Email, c.Code, c.Actor)
	if err != nil {
		return err
	}

	ok, err := s.codes.Check(ctx, match)
	if err != nil {
		return internal("check code", err)
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	email := auth.NormalizeEmail(in.Email)

	if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	if !s.opts.NoEmailVerify {
		if err := validateCode(in.Code); err != nil {
			return nil, err
		}
		match, err := s.matchFor(ctx, auth.PurposeRegister, email, in.Code, nil)
		if err != nil {
			return nil, err
		}
		if err := s.consume(ctx, match); err != nil {
			return nil, err
		}
	}

	user, err := s.creds.CreateAccount(ctx, in.Username, email, in.Password)
	if err != nil {
		return nil, mapUserError("create account", err)
	}

	s.log.Info("account registered", zap.String("user_id", user.ID))
	return s.session(user)
}

// Login returns ErrInvalidCredentials for an unknown identifier and for a
// wrong password alike.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, validation("username/email and password are required")
	}

	user, err := s.creds.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		return nil, internal("find user", err)
	}
	if user == nil {
		s.creds.Hasher.Compare(s.dummyPasswordHash(), password)
		return nil, ErrInvalidCredentials
	}
	if !s.creds.VerifyPassword(user, password) {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

func (s *Service) ResetPassword(ctx context.Context, in ResetInput) error {
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validateCode(in.Code); err != nil {
		return err
	}
	if err := validatePassword(in.NewPassword); err != nil {
		return err
	}

	match, err := s.matchFor(ctx, auth.PurposePasswordReset, in.Email, in.Code, nil)
	if err != nil {
		return err
	}
	if err := s.consume(ctx, match); err != nil {
		return err
	}

	if err := s.creds.UpdatePassword(ctx, *match.UserID, in.NewPassword); err != nil {
		return mapUserError("update password", err)
	}

	s.log.Info("password reset", zap.String("user_id", *match.UserID))
	return nil
}

func (s *Service) ChangeEmail(ctx context.Context, actor *auth.User, in ChangeEmailInput) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if err := validateEmail(in.NewEmail); err != nil {
		return err
	}
	if err := validateCode(in.Code); err != nil {
		return err
	}
	email := auth.NormalizeEmail(in.NewEmail)

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return err
	}

	match, err := s.matchFor(ctx, auth.PurposeEmailChange, email, in.Code, actor)
	if err != nil {
		return err
	}
	if err := s.consume(ctx, match); err != nil {
		return err
	}

	if err := s.creds.UpdateEmail(ctx, actor.ID, email); err != nil {
		return mapUserError("update email", err)
	}

	s.log.Info("email changed", zap.String("user_id", actor.ID))
	return nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("find user", err)
	}
	if user == nil {
		return nil, notFound("user not found")
	}
	p := profileOf(user)
	return &p, nil
}

// Authenticate resolves a bearer token to its user. A bad token and a token
// for a user that no longer exists both yield ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return nil, internal("find user", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// matchFor builds the code lookup for purpose. Register codes have no owner
// and are bound to the address they were sent to. Reset codes belong to the
// account registered under email. Email change codes belong to actor and
// are bound to the new address.
func (s *Service) matchFor(ctx context.Context, purpose auth.Purpose, email, code string, actor *auth.User) (auth.CodeMatch, error) {
	email = auth.NormalizeEmail(email)
	match := auth.CodeMatch{Purpose: purpose, Email: email, Code: strings.TrimSpace(code)}

	switch purpose {
	case auth.PurposeRegister:
	case auth.PurposePasswordReset:
		user, err := s.userByEmail(ctx, email)
		if err != nil {
			return auth.CodeMatch{}, err
		}
		match.UserID = &user.ID
	case auth.PurposeEmailChange:
		if actor == nil {
			return auth.CodeMatch{}, ErrUnauthenticated
		}
		id := actor.ID
		match.UserID = &id
	default:
		return auth.CodeMatch{}, validation("invalid verification code type")
	}
	return match, nil
}

func (s *Service) consume(ctx context.Context, match auth.CodeMatch) error {
	ok, err := s.codes.Consume(ctx, match)
	if err != nil {
		return internal("consume code", err)
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func (s *Service) session(user *auth.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, internal("issue token", err)
	}
	return &Session{User: profileOf(user), Token: token, ExpiresAt: expires}, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal("find user", err)
	}
	if user == nil {
		return nil, notFound("email is not registered")
	}
	return user, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return internal("find user", err)
	}
	if existing != nil {
		return conflict(auth.ErrDuplicateEmail.Error(), auth.ErrDuplicateEmail)
	}
	return nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	existing, err := s.creds.Users.FindByUsername(ctx, username)
	if err != nil {
		return internal("find user", err)
	}
	if existing != nil {
		return conflict(auth.ErrDuplicateUsername.Error(), auth.ErrDuplicateUsername)
	}
	return nil
}

// dummyPasswordHash gives unknown-identifier logins a hash to compare
// against so they cost the same as a wrong password.
func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.creds.Hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func mapUserError(op string, err error) error {
	switch {
	case errors.Is(err, auth.ErrDuplicateUsername), errors.Is(err, auth.ErrDuplicateEmail):
		return conflict(err.Error(), err)
	case errors.Is(err, auth.ErrUserNotFound):
		return notFound("user not found")
	default:
		return internal(op, err)
	}
}
