package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/documents"
	"docqa-backend/internal/services/health"
	"docqa-backend/internal/shared/config"
	"docqa-backend/internal/shared/metrics"
	"docqa-backend/internal/shared/server/middleware"
	"docqa-backend/internal/shared/server/respond"
)

const (
	rateGroupUpload = "UPLOAD"
	rateGroupQuery  = "QUERY"
)

// RouterDeps carries the handlers and collaborators the router needs.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	Verifier        middleware.TokenVerifier
	Limiter         middleware.Limiter
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(deps.Config.Env, "", deps.Config.ObjectStoreType)
	}
	healthHandler := func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
	r.GET("/health", healthHandler)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	api.Use(
		middleware.Auth(deps.Config.Env, deps.Verifier),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				rateGroupUpload: middleware.PerMinute(deps.Config.RateLimitUploadPerMinute),
				rateGroupQuery:  middleware.PerMinute(deps.Config.RateLimitQueryPerMinute),
			},
			GroupFor: rateGroupFor,
			Limiter:  limiter,
		}),
	)

	api.GET("/me", meHandler)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/documents", "/api/v1/documents/upload":
		if c.Request.Method == http.MethodPost {
			return rateGroupUpload
		}
	case "/api/v1/documents/:id/query":
		return rateGroupQuery
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
