package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/app"
	"github.com/saiakshat556/farm-data-bridge/internal/handlers"
	"github.com/saiakshat556/farm-data-bridge/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(db *gorm.DB, cfg *app.Config, svc *Services) (*gin.Engine, error) {
	if db == nil {
		return nil, errors.New("database handle must be provided")
	}
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if svc == nil || svc.Identity == nil || svc.Gate == nil || svc.Submissions == nil || svc.Notifications == nil {
		return nil, errors.New("services must be provided")
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	registerHealthRoutes(r, db, cfg)

	authHandler := handlers.NewAuthHandler(svc.Identity, svc.Gate)
	submissionHandler := handlers.NewSubmissionHandler(svc.Submissions, svc.Gate)
	statsHandler := handlers.NewStatsHandler(svc.Submissions, svc.Gate)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications, svc.Hub)
	userHandler := handlers.NewUserHandler(svc.Identity)

	// The websocket handshake cannot carry headers from browsers, so the
	// stream accepts the access token as a query parameter.
	stream := r.Group("/api/notifications")
	stream.Use(middleware.Auth(svc.Identity, middleware.WithQueryToken("token")))
	stream.GET("/stream", notificationHandler.Stream)

	api := r.Group("/api")
	api.Use(middleware.Auth(svc.Identity))

	registerAuthRoutes(r, api, authHandler)
	registerSubmissionRoutes(api, submissionHandler, statsHandler, svc.Gate)
	registerNotificationRoutes(api, notificationHandler, svc.Gate)
	registerUserRoutes(api, userHandler, submissionHandler, svc.Gate)

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

func registerHealthRoutes(r *gin.Engine, db *gorm.DB, cfg *app.Config) {
	r.GET("/health", handlers.Health(db))

	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
