package server

import (
	"net/http"

	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
)

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(account.KindValidation), "invalid request body")
		return
	}

	ctx := r.Context()
	email := auth.NormalizeEmail(req.Email)
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.RateLimiter.RegisterResetAttempt(ctx, email, ip); err != nil {
		s.requestLogger(r).Error("reset-password: rate limit check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(account.KindInternal), account.MsgInternal)
		return
	} else if locked {
		writeRateLimited(w, "too many reset attempts, try again later", ttl)
		return
	}

	err := s.Accounts.ResetPassword(ctx, account.ResetInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.ResetVerify(ctx, email)
	s.audit(r, auth.AuditPasswordReset, "", map[string]interface{}{"email": email})
	writeJSON(w, http.StatusOK, map[string]string{"message": "password has been reset"})
}
