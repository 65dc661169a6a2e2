package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
)

type ctxKey string

const userContextKey ctxKey = "user"

// authenticate resolves the bearer token according to access.
func (s *Server) authenticate(access Access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if access == AccessPublic {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				if access == AccessOptional {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, string(account.KindAuthentication), account.MsgUnauthenticated)
				return
			}

			user, err := s.Accounts.Authenticate(r.Context(), token)
			if err != nil {
				if access == AccessOptional && account.KindOf(err) == account.KindAuthentication {
					next.ServeHTTP(w, r)
					return
				}
				s.writeServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFromContext(ctx context.Context) *auth.User {
	if val, ok := ctx.Value(userContextKey).(*auth.User); ok {
		return val
	}
	return nil
}

// zapLogFormatter feeds chi's request logger into zap.
type zapLogFormatter struct {
	logger *zap.Logger
}

func (f *zapLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &zapLogEntry{logger: f.logger.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
	)}
}

type zapLogEntry struct {
	logger *zap.Logger
}

func (e *zapLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.Info("request",
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("elapsed", elapsed),
	)
}

func (e *zapLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("panic", zap.Any("panic", v), zap.ByteString("stack", stack))
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.Logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
}
