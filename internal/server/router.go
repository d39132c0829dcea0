// Package server assembles the HTTP surface: middleware chain, route table
// and CORS.
package server

import (
	"log/slog"
	"net/http"

	"github.com/eaglebank/ge-api/internal/handler"
	"github.com/eaglebank/ge-api/internal/middleware"
	"github.com/eaglebank/ge-api/internal/sanitize"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIPrefix mounts a second copy of the routes for clients that address the
// service under /api.
const APIPrefix = "/api"

type Deps struct {
	Auth     *handler.AuthHandler
	Transfer *handler.TransferHandler
	Health   *handler.HealthHandler

	Tokens      middleware.TokenVerifier
	AuthLimiter middleware.Limiter
	Sanitizer   *sanitize.Sanitizer
	Logger      *slog.Logger

	BodyLimit      int64
	CORSOrigins    []string
	TrustedProxies []string
}

// NewRouter builds the gin engine and wraps it with CORS.
func NewRouter(d Deps) (http.Handler, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(
		middleware.RequestID(),
		middleware.LoggingMiddleware(d.Logger),
		middleware.MetricsMiddleware(),
		middleware.ErrorHandler(d.Logger),
		middleware.SecurityHeaders(),
		middleware.SanitizeMiddleware(d.Sanitizer, d.BodyLimit),
	)

	authLimit := middleware.RateLimitMiddleware(d.AuthLimiter, "auth", d.Logger)
	requireAuth := middleware.AuthMiddleware(d.Tokens)

	for _, prefix := range []string{"", APIPrefix} {
		root := r.Group(prefix)

		auth := root.Group("/auth", authLimit)
		{
			auth.POST("/register", d.Auth.Register)
			auth.POST("/login", d.Auth.Login)
			auth.POST("/refresh", d.Auth.RefreshToken)
			auth.GET("/me", requireAuth, d.Auth.Me)
		}

		transfers := root.Group("/transfers", requireAuth)
		{
			transfers.POST("/movement", d.Transfer.SubmitMovement)
			transfers.POST("/transfer", d.Transfer.SubmitTransfer)
		}

		root.GET("/health", d.Health.Health)
	}

	r.GET("/ping", d.Health.Ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "path": c.Request.URL.Path})
	})

	return corsHandler(d.CORSOrigins)(r), nil
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           600,
	})
}
