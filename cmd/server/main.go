package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"accountsvc/internal/account"
	"accountsvc/internal/auth"
	"accountsvc/internal/config"
	"accountsvc/internal/database"
	"accountsvc/internal/email"
	"accountsvc/internal/logging"
	"accountsvc/internal/redisx"
	"accountsvc/internal/server"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	auditMaxLen     = 200
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	var (
		users auth.UserStore
		codes auth.CodeStore
		ready func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(startCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database error", zap.Error(err))
		}
		defer db.Close()

		if cfg.AutoMigrate {
			applied, err := database.ApplyMigrations(startCtx, db)
			if err != nil {
				logger.Fatal("migration failed", zap.Error(err))
			}
			logger.Info("migrations checked", zap.Strings("applied", applied))
		}

		users = auth.NewUserRepository(db)
		codes = auth.NewCodeRepository(db)
		ready = db.Ping
	case config.StoreDriverMemory:
		mem := auth.NewMemoryStore()
		users, codes = mem, mem
		logger.Warn("using in-memory store, data is lost on restart")
	}

	var (
		rateLimiter *auth.RateLimiter
		auditLog    *auth.AuditLogger
	)
	if cfg.RedisURL != "" {
		var redisClient *redis.Client
		redisClient, err = redisx.New(startCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis error", zap.Error(err))
		}
		defer redisClient.Close()

		rateLimiter = &auth.RateLimiter{Redis: redisClient}
		auditLog = &auth.AuditLogger{Redis: redisClient, MaxLen: auditMaxLen}
	} else {
		logger.Warn("REDIS_URL not set, rate limiting and audit log disabled")
	}

	var mailer email.Mailer = email.NewSender(cfg.Email)
	if !cfg.Email.Enabled() {
		logger.Warn("email server not configured, verification emails are only logged")
		mailer = &email.LogMailer{Logger: logger}
	}

	tokens, err := auth.NewTokenIssuer(cfg.Token.Secret, cfg.Token.TTL, cfg.Token.Issuer)
	if err != nil {
		logger.Fatal("token issuer error", zap.Error(err))
	}

	accounts := account.NewService(
		auth.NewCredentials(users, auth.NewBcryptHasher()),
		codes,
		tokens,
		email.NewDispatcher(mailer, cfg.Code.TTL),
		logger.Named("account"),
		account.Options{
			CodeLength:    cfg.Code.Length,
			CodeTTL:       cfg.Code.TTL,
			NoEmailVerify: cfg.NoEmailVerify,
		},
	)

	api := server.NewServer(cfg, accounts, rateLimiter, auditLog, logger.Named("http"))
	api.Ready = ready

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
}
