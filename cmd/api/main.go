package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/eaglebank/ge-api/internal/command"
	"github.com/eaglebank/ge-api/internal/config"
	"github.com/eaglebank/ge-api/internal/events"
	"github.com/eaglebank/ge-api/internal/handler"
	"github.com/eaglebank/ge-api/internal/middleware"
	"github.com/eaglebank/ge-api/internal/query"
	redisclient "github.com/eaglebank/ge-api/internal/redis"
	"github.com/eaglebank/ge-api/internal/repository"
	"github.com/eaglebank/ge-api/internal/sanitize"
	"github.com/eaglebank/ge-api/internal/security"
	"github.com/eaglebank/ge-api/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// Database connection
	db, err := repository.Open(ctx, cfg.DBDriver, cfg.DSN(), cfg.DBPoolSize)
	if err != nil {
		return err
	}
	defer db.Close()

	gateway := repository.NewProcedureGateway(db, repository.DialectFor(cfg.DBDriver), cfg.DBPoolSize)

	// Redis is optional: without it the rate limiter is per-process and no
	// audit events are published.
	var (
		limiter middleware.Limiter
		audit   command.Auditor
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPrefix, cfg.AuthRateLimit, cfg.AuthRateWindow)
		audit = events.NewAudit(events.NewPublisher(rdb, cfg.AuditStreamMaxLen), logger)
	} else {
		mem := middleware.NewMemoryLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
		defer mem.Stop()
		limiter = mem
	}

	hasher := security.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		return err
	}

	// CQRS: writes go through command services, login and refresh are queries
	authCommands := command.NewAuthCommandService(gateway, hasher, tokens, audit)
	authQueries := query.NewAuthQueryService(gateway, hasher, tokens)
	transferCommands := command.NewTransferCommandService(gateway, audit)

	router, err := server.NewRouter(server.Deps{
		Auth:           handler.NewAuthHandler(authCommands, authQueries),
		Transfer:       handler.NewTransferHandler(transferCommands),
		Health:         handler.NewHealthHandler(gateway),
		Tokens:         tokens,
		AuthLimiter:    limiter,
		Sanitizer:      sanitize.New(sanitize.DefaultMaxDepth),
		Logger:         logger,
		BodyLimit:      cfg.BodyLimitBytes,
		CORSOrigins:    cfg.CORSOrigins(),
		TrustedProxies: cfg.TrustedProxyList(),
	})
	if err != nil {
		return err
	}

	return server.Run(ctx, ":"+cfg.Port, router, cfg.ShutdownTimeout, logger)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.GinMode == gin.ReleaseMode {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
