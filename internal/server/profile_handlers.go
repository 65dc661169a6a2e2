package server

import (
	"net/http"

	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, string(account.KindAuthentication), account.MsgUnauthenticated)
		return
	}

	profile, err := s.Accounts.Profile(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": profile})
}

type changeEmailRequest struct {
	NewEmail string `json:"newEmail"`
	Code     string `json:"code"`
}

func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, string(account.KindAuthentication), account.MsgUnauthenticated)
		return
	}

	var req changeEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid request body")
		return
	}

	ctx := r.Context()
	newEmail := auth.NormalizeEmail(req.NewEmail)
	if locked, ttl, err := s.RateLimiter.RegisterVerifyAttempt(ctx, newEmail); err != nil {
		s.requestLogger(r).Warn("change-email: rate limit check failed", zap.Error(err))
	} else if locked {
		writeRateLimited(w, "too many attempts, try again later", ttl)
		return
	}

	err := s.Accounts.ChangeEmail(ctx, user, account.ChangeEmailInput{NewEmail: req.NewEmail, Code: req.Code})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.ResetVerify(ctx, newEmail)
	s.audit(r, auth.AuditEmailChanged, user.ID, map[string]interface{}{"previous": user.Email, "email": newEmail})
	writeJSON(w, http.StatusOK, map[string]string{"message": "email address updated"})
}
