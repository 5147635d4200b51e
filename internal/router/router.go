package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/handler"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/telemetry"
)

// questionListMaxAge is how long shared caches may keep public question lists.
const questionListMaxAge = 30

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Question *handler.QuestionHandler
	Speaking *handler.SpeakingTestHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// m may be nil, in which case /metrics is not mounted.
func SetupRouter(
	tokens middleware.TokenVerifier,
	handlers *Handlers,
	cfg *config.Config,
	m *metrics.Metrics,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Request ID first so recovery and access logs can report it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	if cfg.OTelEnabled {
		router.Use(telemetry.TracingMiddleware())
	}
	if m != nil {
		router.Use(m.Middleware())
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{response.RequestIDHeader, telemetry.TraceIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.NoRoute(middleware.NotFound)
	router.NoMethod(middleware.MethodNotAllowed)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	requireAuth := middleware.RequireAuth(tokens, log, m)
	requireAdmin := middleware.RequireRole(model.RoleAdmin)

	api := router.Group("/api")

	// ─── 1. Auth Group (Public + Profile) ─────────────────────────────
	auth := api.Group("/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/profile", requireAuth, handlers.Auth.Profile)
	}

	// ─── 2. Users Group (Admin) ───────────────────────────────────────
	users := api.Group("/users")
	users.Use(requireAuth, requireAdmin, middleware.NoStore())
	{
		users.GET("/list", handlers.User.List)
		users.GET("/getuserid/:id", handlers.User.Get)
	}

	// ─── 3. Questions Group ───────────────────────────────────────────
	questions := api.Group("/questions")
	{
		questions.POST("/generate-question", requireAuth, requireAdmin, handlers.Question.GenerateOne)
		questions.POST("/generate-questions", requireAuth, requireAdmin, handlers.Question.GenerateBatch)

		// Public listings are compressed and briefly cacheable.
		listing := questions.Group("", middleware.Brotli(), middleware.CacheControl(questionListMaxAge))
		listing.GET("/get-question-pages", handlers.Question.ListPage)
		listing.GET("/get-questions", handlers.Question.ListAll)
	}

	// ─── 4. Speaking Tests Group (Authenticated) ──────────────────────
	speaking := api.Group("/speaking-tests")
	speaking.Use(requireAuth)
	{
		speaking.POST("/create", handlers.Speaking.Create)
		speaking.GET("/testid/:id", handlers.Speaking.Get)
	}

	// ─── 5. WebSocket Group (Token in Query + Admin) ──────────────────
	ws := api.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(tokens, log, m), requireAdmin)
	{
		ws.GET("/questions/generate", handlers.WS.GenerateStream)
	}

	return router
}
