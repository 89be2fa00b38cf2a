package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvtailor-backend/internal/analysis"
	"cvtailor-backend/internal/applied"
	"cvtailor-backend/internal/cvversions"
	"cvtailor-backend/internal/jdcache"
	"cvtailor-backend/internal/services/health"
	"cvtailor-backend/internal/shared/config"
	"cvtailor-backend/internal/shared/metrics"
	"cvtailor-backend/internal/shared/server/middleware"
	"cvtailor-backend/internal/shared/server/respond"
)

// RouterDeps carries handlers built by bootstrap.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	CVHandler       *cvversions.Handler
	JDCacheHandler  *jdcache.Handler
	AnalysisHandler *analysis.Handler
	AppliedHandler  *applied.Handler
	Limiter         *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	// Health is reachable without identity so load balancers can probe it.
	r.GET("/api/v1/health", healthHandler(deps.Health))

	api := r.Group("/api/v1", middleware.Auth(deps.Config.JWTSecret))
	registerMeRoutes(api)

	if deps.CVHandler != nil {
		deps.CVHandler.RegisterRoutes(api)
	}
	if deps.JDCacheHandler != nil {
		deps.JDCacheHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		limit := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": middleware.PerMinute(deps.Config.AnalyzeRatePerMin, deps.Config.AnalyzeBurst),
			},
		})
		deps.AnalysisHandler.RegisterRoutes(api, limit)
	}
	if deps.AppliedHandler != nil {
		deps.AppliedHandler.RegisterRoutes(api)
	}

	return r
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		ok, checks := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	}
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
