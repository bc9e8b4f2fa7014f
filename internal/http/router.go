// Package httpapi wires the HTTP transport (Gin) to the PvP services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-pvp-backend/docs"
	"github.com/tbourn/go-pvp-backend/internal/config"
	"github.com/tbourn/go-pvp-backend/internal/domain"
	"github.com/tbourn/go-pvp-backend/internal/http/handlers"
	"github.com/tbourn/go-pvp-backend/internal/http/middleware"
	"github.com/tbourn/go-pvp-backend/internal/observability"
	"github.com/tbourn/go-pvp-backend/internal/repo"
	"github.com/tbourn/go-pvp-backend/internal/services"
)

// maxBodyBytes caps request bodies; attack payloads are a few dozen bytes.
const maxBodyBytes = 64 << 10

// replayLookup reports whether (accountID, key) already holds a completed
// attack response, so the rate limiter can let the replay through.
func replayLookup(db *gorm.DB) middleware.ReplayLookup {
	return func(ctx context.Context, accountID, key string) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, accountID, key)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec.Completed(), nil
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. Metrics are registered on reg and served from it at /metrics; a nil
// reg gets a fresh registry so repeated calls (tests) never collide.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: read X-User-ID before anything logs or keys on it
//  4. Logger: structured access logs, PII scrubbed outside debug mode
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Test header guard (X-Test-* only in test mode)
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per account/IP, bypass on replay)
//  11. CORS, compression, and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, reg *prometheus.Registry) {
	r.HandleMethodNotAllowed = true
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Caller identity
	r.Use(middleware.Identity())

	// 4) Structured logging; redacted outside debug mode
	if cfg.GinMode == "debug" {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	}

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.NewHTTPMetrics(reg).Handler())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// 8) Override headers are rejected outside test mode
	r.Use(middleware.TestHeaderGuard(cfg.Game.TestMode()))

	// 9) Idempotency validation (before rate limiting); presence is enforced
	// by the attack service so the error order stays identity first.
	r.Use(middleware.IdempotencyKey(middleware.IdempotencyOptions{
		MaxLen: domain.MaxIdempotencyKeyLen,
	}, replayLookup(db)))

	// 10) Token-bucket rate limiter per account/IP; RATE_RPS=0 disables it
	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAccountOrIP())
		r.Use(rl.Handler())
	}

	// 11) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderAccountID,
		middleware.HeaderIdempotencyKey,
		middleware.HeaderTestForceResult,
		middleware.HeaderTestForceDelta,
		middleware.HeaderTestIgnoreCooldowns,
	}
	exposeHeaders := []string{"X-Request-ID", "Retry-After", middleware.HeaderIdempotencyReplayed, "ETag", "Content-Length"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/config/metrics
	recorder := observability.NewPvPMetrics(reg)
	loc := cfg.Game.Location()

	attackSvc := services.NewAttackService(db, loc, cfg.Game.TestMode())
	if cfg.Game.IdempotencyStaleAfter > 0 {
		attackSvc.StaleAfter = cfg.Game.IdempotencyStaleAfter
	}
	attackSvc.Metrics = recorder

	h := handlers.New(attackSvc, services.NewLimitsService(db, loc), services.NewBattleLogService(db))

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	pvp := api.Group("/pvp")
	{
		pvp.POST("/attack", h.Attack)
		pvp.GET("/limits", h.Limits)
		pvp.GET("/log", h.Log)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
