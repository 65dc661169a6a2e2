package server

import (
	"net/http"

	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
	"accountsvc/internal/i18n"
)

type codeRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid request body")
		return
	}
	purpose, err := auth.ParsePurpose(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid verification code type")
		return
	}

	ctx := r.Context()
	email := auth.NormalizeEmail(req.Email)
	if ttl := s.RateLimiter.CodeCooldownTTL(ctx, email, purpose); ttl > 0 {
		writeRateLimited(w, "a code was sent recently, please wait before requesting another", ttl)
		return
	}

	user := userFromContext(ctx)
	err = s.Accounts.RequestCode(ctx, account.CodeRequest{
		Email:   req.Email,
		Purpose: purpose,
		Actor:   user,
		Locale:  i18n.LocaleFromRequest(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.SetCodeCooldown(ctx, email, purpose)

	var userID string
	if user != nil {
		userID = user.ID
	}
	s.audit(r, auth.AuditCodeSent, userID, map[string]interface{}{"purpose": purpose.String()})
	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid request body")
		return
	}
	purpose, err := auth.ParsePurpose(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid verification code type")
		return
	}

	ctx := r.Context()
	email := auth.NormalizeEmail(req.Email)
	if locked, ttl, err := s.RateLimiter.RegisterVerifyAttempt(ctx, email); err != nil {
		s.requestLogger(r).Warn("verify-code: rate limit check failed", zap.Error(err))
	} else if locked {
		writeRateLimited(w, "too many attempts, try again later", ttl)
		return
	}

	err = s.Accounts.VerifyCode(ctx, account.CodeCheck{
		Email:   req.Email,
		Code:    req.Code,
		Purpose: purpose,
		Actor:   userFromContext(ctx),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code is valid"})
}
