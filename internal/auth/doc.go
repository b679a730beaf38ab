// Package auth provides authentication and authorization for the application.
//
// Credentials are stored as "<salt-hex>.<scrypt-hash-hex>". Sessions live
// entirely in a signed and encrypted cookie; the only value the package
// relies on is userId.
//
// # Configuration
//
//	SESSION_KEYS=newest,older        # comma separated, first key signs
//	SESSION_MAX_AGE=24h
//	SESSION_SECURE=true              # HTTPS-only cookies
//	AUTH_ADMIN_BY_DEFAULT=false
//	AUTH_RATE_LIMIT_ENABLED=true
//	AUTH_CSRF_ENABLED=false
//
// # Usage
//
// Wire the middleware in this order:
//
//	router.Use(store.Middleware())
//	router.Use(auth.CurrentUserMiddleware(userRepo))
//
// Protect routes with guards:
//
//	router.POST("/reports", auth.AuthGuard(), h.Create)
//	router.PATCH("/reports/:id", auth.AdminGuard(), h.Approve)
package auth
