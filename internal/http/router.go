package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/logging"
	"github.com/mrlokans/mycv/internal/metrics"
	"github.com/mrlokans/mycv/internal/telemetry"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// SessionStore and AuthService are required; everything else is optional.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(logging.Middleware())
	router.Use(gin.Recovery())

	if cfg.TracingEnabled {
		router.Use(telemetry.Middleware(cfg.ServiceName))
	}
	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
	}

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(0))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	router.Use(cfg.SessionStore.Middleware())
	if cfg.UserFinder != nil {
		router.Use(auth.CurrentUserMiddleware(cfg.UserFinder))
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// Session and user endpoints share the /auth prefix
	authGroup := router.Group("/auth")
	auth.NewAuthController(cfg.AuthService, cfg.RateLimiter, cfg.AuditService).RegisterRoutes(authGroup)
	NewUsersController(cfg.AuthService, cfg.AuditService).RegisterRoutes(authGroup)

	if cfg.Reports != nil {
		NewReportsController(cfg.Reports, cfg.AuditService).RegisterRoutes(router.Group("/reports"))
	}

	// Admin endpoints
	admin := router.Group("/api", auth.AdminGuard())
	if cfg.AuditLister != nil {
		auditController := NewAuditController(cfg.AuditLister)
		admin.GET("/audit", auditController.GetAuditEvents)
	}
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.AuditRetentionDays)
		admin.POST("/admin/tasks/audit-cleanup", tasksController.RunAuditCleanup)
		admin.GET("/admin/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
