package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "tagrec-backend/internal/auth"
	"tagrec-backend/internal/recommend"
	"tagrec-backend/internal/sessions"
	"tagrec-backend/internal/shared/config"
	"tagrec-backend/internal/shared/metrics"
	"tagrec-backend/internal/shared/server/middleware"
	"tagrec-backend/internal/shared/server/respond"
)

// Recommendations fan out to a paid LLM backend, so they get a token
// bucket per caller on top of the backend's own rate limiting.
const (
	recommendGroup     = "recommendations"
	recommendRatePerS  = 0.5
	recommendBurstSize = 5
)

// RouterDeps carries the handlers the router registers. Construction of
// the dependency graph lives in internal/bootstrap.
type RouterDeps struct {
	Config           config.Config
	SessionHandler   *sessions.Handler
	RecommendHandler *recommend.Handler
	GoogleAuth       *googleauth.GoogleService
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
		middleware.Auth(deps.Config.Env),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(api)
	}
	if deps.RecommendHandler != nil {
		limited := api.Group("", middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        map[string]middleware.RateLimitRule{recommendGroup: {Rate: recommendRatePerS, Burst: recommendBurstSize}},
			DefaultGroup: recommendGroup,
		}))
		deps.RecommendHandler.RegisterRoutes(limited)
	}
	r.GET("/metrics", metrics.Handler())

	return r
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
