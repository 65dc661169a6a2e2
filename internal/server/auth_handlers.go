package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
	// VerificationCode is accepted as an alias of Code.
	VerificationCode string `json:"verificationCode"`
}

type sessionResponse struct {
	Message   string          `json:"message"`
	User      account.Profile `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid request body")
		return
	}
	code := req.Code
	if code == "" {
		code = req.VerificationCode
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.RateLimiter.RegisterRegisterAttempt(ctx, auth.NormalizeEmail(req.Email), ip); err != nil {
		s.requestLogger(r).Error("register: rate limit check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(account.KindInternal), account.MsgInternal)
		return
	} else if locked {
		writeRateLimited(w, "too many signup attempts, try again later", ttl)
		return
	}

	sess, err := s.Accounts.Register(ctx, account.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    req.Email,
		Password: req.Password,
		Code:     code,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit(r, auth.AuditRegister, sess.User.ID, nil)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Message:   "registration successful",
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid request body")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if s.RateLimiter.IsIPBanned(ctx, ip) {
		writeRateLimited(w, "too many failed login attempts, try again later", time.Hour)
		return
	}

	sess, err := s.Accounts.Login(ctx, req.UsernameOrEmail, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			if rlErr := s.RateLimiter.RegisterLoginFailure(ctx, ip); rlErr != nil {
				s.requestLogger(r).Warn("login: record failure", zap.Error(rlErr))
			}
			s.audit(r, auth.AuditLoginFailed, "", nil)
		}
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.ResetLogin(ctx, ip)
	s.audit(r, auth.AuditLogin, sess.User.ID, nil)
	writeJSON(w, http.StatusOK, sessionResponse{
		Message:   "login successful",
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}
