package server

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
	"accountsvc/internal/config"
)

type Server struct {
	Accounts    *account.Service
	RateLimiter Limiter
	Audit       Auditor
	Logger      *zap.Logger
	Config      config.Config
	// Ready reports backing store health for /healthz. Nil means always ready.
	Ready          func(ctx context.Context) error
	trustedProxies []net.IPNet
}

// NewServer wires the HTTP surface. rl and audit may be nil when Redis is
// not configured.
func NewServer(cfg config.Config, accounts *account.Service, rl *auth.RateLimiter, audit *auth.AuditLogger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Accounts:       accounts,
		RateLimiter:    noLimits{},
		Audit:          noAudit{},
		Logger:         logger,
		Config:         cfg,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
	if rl != nil {
		s.RateLimiter = rl
	}
	if audit != nil {
		s.Audit = audit
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&zapLogFormatter{logger: s.Logger}))
	r.Use(middleware.Recoverer)
	if s.Config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.Config.RequestTimeout))
	}
	r.Use(secureHeaders)

	route := func(method, path string, h http.HandlerFunc) {
		r.With(s.authenticate(accessFor(method, path))).Method(method, path, h)
	}

	route(http.MethodGet, "/healthz", s.handleHealth)

	route(http.MethodPost, "/api/users/register", s.handleRegister)
	route(http.MethodPost, "/api/users/login", s.handleLogin)
	route(http.MethodPost, "/api/users/verification-code", s.handleRequestCode)
	route(http.MethodPost, "/api/users/verify-code", s.handleVerifyCode)
	route(http.MethodPost, "/api/users/reset-password", s.handleResetPassword)
	route(http.MethodPost, "/api/users/change-email", s.handleChangeEmail)
	route(http.MethodGet, "/api/users/profile", s.handleProfile)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, string(account.KindNotFound), "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, string(account.KindValidation), "method not allowed")
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		if err := s.Ready(r.Context()); err != nil {
			s.requestLogger(r).Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) audit(r *http.Request, event string, userID string, meta map[string]interface{}) {
	err := s.Audit.Log(r.Context(), auth.AuditEvent{
		EventType: event,
		UserID:    userID,
		IP:        clientIP(r, s.trustedProxies),
		UserAgent: r.UserAgent(),
		Meta:      meta,
	})
	if err != nil {
		s.requestLogger(r).Warn("audit log failed", zap.String("event", event), zap.Error(err))
	}
}
