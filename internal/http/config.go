package http

import (
	"github.com/mrlokans/mycv/internal/audit"
	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database     *database.Database
	AuthService  *auth.Service
	UserFinder   auth.UserFinder
	Reports      ReportStore
	AuditService *audit.Service
	AuditLister  AuditLister

	// Sessions
	SessionStore *auth.SessionStore

	// Optional signin rate limiter
	RateLimiter *auth.RateLimiter

	// CSRF protection, disabled when empty
	CSRFSecret    []byte
	SecureCookies bool

	// Observability
	MetricsEnabled bool
	TracingEnabled bool
	ServiceName    string

	// Task queue client (optional)
	TaskQueue          TaskQueue
	AuditRetentionDays int

	// Application info
	Version string
}
