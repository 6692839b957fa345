package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/dbpool"
	"github.com/persistorai/isomatch/internal/middleware"
	"github.com/persistorai/isomatch/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log          *logrus.Logger
	Pool         *dbpool.Pool
	Graph        HealthChecker // nil when nodes resolve from Pool
	GraphBackend string
	Matches      MatchRepository
	Nodes        NodeRepository // nil when nodes resolve from Graph
	Events       EventRepository
	Hub          *ws.Hub // nil disables the event stream
	TenantLookup middleware.TenantLookup
	CORSOrigins  []string
	Version      string
}

// Router-level limits.
const (
	maxBodySize = 10 << 20 // 10 MB
	rateLimit   = 100      // requests per second per IP
	rateBurst   = 200
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Graph, deps.GraphBackend, log, deps.Version)
	matches := NewMatchHandler(deps.Matches, log)
	events := NewEventHandler(deps.Events, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	guard := middleware.NewBruteForceGuard(log)
	api.Use(middleware.BruteForceMiddleware(guard))
	api.Use(middleware.AuthMiddleware(middleware.NewCachedTenantLookup(deps.TenantLookup), log, guard))

	api.POST("/matches", matches.Submit)
	api.GET("/matches", matches.List)
	api.GET("/matches/:id", matches.Get)
	api.GET("/matches/:id/records", matches.Records)
	api.DELETE("/matches/:id", matches.Delete)

	if deps.Nodes != nil {
		nodes := NewNodeHandler(deps.Nodes, log)
		api.POST("/nodes", nodes.Register)
		api.POST("/nodes/bulk", nodes.RegisterBulk)
		api.GET("/nodes", nodes.List)
		api.DELETE("/nodes/:id", nodes.Delete)
	}

	api.GET("/events", events.Query)
	api.DELETE("/events", events.Purge)

	if deps.Hub != nil {
		api.GET("/events/stream", streamHandler(log, deps.Hub, deps.CORSOrigins, deps.TenantLookup))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(r.Group("/api/v1"), deps)

	return r
}
