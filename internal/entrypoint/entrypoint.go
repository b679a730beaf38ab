package entrypoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/mycv/internal/audit"
	"github.com/mrlokans/mycv/internal/auth"
	"github.com/mrlokans/mycv/internal/config"
	"github.com/mrlokans/mycv/internal/database"
	auditrepo "github.com/mrlokans/mycv/internal/database/audit"
	"github.com/mrlokans/mycv/internal/database/reports"
	"github.com/mrlokans/mycv/internal/database/users"
	http_controllers "github.com/mrlokans/mycv/internal/http"
	"github.com/mrlokans/mycv/internal/logging"
	"github.com/mrlokans/mycv/internal/scheduler"
	"github.com/mrlokans/mycv/internal/tasks"
	"github.com/mrlokans/mycv/internal/telemetry"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Dur("timeout", timeout).Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown")
	}

	// Background work stops after in-flight requests have drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info().Msg("Server exiting")
}

// sessionKeys returns the configured keys, generating a throwaway key in
// development. Sessions signed with it do not survive a restart.
func sessionKeys(cfg *config.Config) ([]string, error) {
	if len(cfg.Session.Keys) > 0 {
		return cfg.Session.Keys, nil
	}
	if !cfg.IsDevelopment() {
		return nil, config.ErrNoSessionKeys
	}
	key, err := auth.GenerateSessionKey()
	if err != nil {
		return nil, err
	}
	log.Warn().Msg("SESSION_KEYS not set, generated a temporary key; sessions end on restart")
	return []string{key}, nil
}

// csrfKey turns the configured secret into the 32-byte key gorilla/csrf needs.
func csrfKey(secret string) ([]byte, error) {
	if secret == "" {
		key, err := auth.GenerateSessionKey()
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("AUTH_CSRF_SECRET not set, generated a temporary secret")
		secret = key
	}
	if b, err := hex.DecodeString(secret); err == nil && len(b) == 32 {
		return b, nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

func Run(cfg *config.Config, version string) {
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Str("version", version).Str("env", cfg.Global.Env).Msg("Starting mycv")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	var tracerShutdown func(context.Context) error
	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracing(context.Background(), cfg.Tracing)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		tracerShutdown = tp.Shutdown
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	userRepo := users.NewRepository(db.DB)
	reportRepo := reports.NewRepository(db.DB)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	authService := auth.NewService(userRepo, auth.NewHasher(cfg.Auth), cfg.Auth.AdminByDefault)
	if cfg.Auth.AdminByDefault {
		log.Warn().Msg("AUTH_ADMIN_BY_DEFAULT is on: every signup becomes an administrator")
	}

	keys, err := sessionKeys(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load session keys")
	}
	sessionCfg := cfg.Session
	sessionCfg.Keys = keys
	sessionStore, err := auth.NewSessionStore(sessionCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session store")
	}

	var rateLimiter *auth.RateLimiter
	if rlCfg := auth.RateLimitConfigFrom(cfg.Auth); rlCfg != nil {
		rateLimiter = auth.NewRateLimiter(*rlCfg)
	}

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret, err = csrfKey(cfg.Auth.CSRFSecret)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare CSRF secret")
		}
	}

	// Task queue is optional; without it audit cleanup runs inline.
	var taskClient *tasks.Client
	var taskQueue http_controllers.TaskQueue
	var enqueuer scheduler.Enqueuer
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing task client")
			}
		}()

		taskClient.Register(tasks.NewCleanupAuditEventsQueue(auditService))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		taskQueue = taskClient
		enqueuer = taskClient
	}

	cleanupScheduler := scheduler.NewAuditCleanupScheduler(
		cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays, enqueuer, auditService)
	if err := cleanupScheduler.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start audit cleanup scheduler")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:           db,
		AuthService:        authService,
		UserFinder:         userRepo,
		Reports:            reportRepo,
		AuditService:       auditService,
		AuditLister:        auditService,
		SessionStore:       sessionStore,
		RateLimiter:        rateLimiter,
		CSRFSecret:         csrfSecret,
		SecureCookies:      cfg.Session.Secure,
		MetricsEnabled:     cfg.Metrics.Enabled,
		TracingEnabled:     cfg.Tracing.Enabled,
		ServiceName:        cfg.Tracing.ServiceName,
		TaskQueue:          taskQueue,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		Version:            version,
	})

	onShutdown := func(ctx context.Context) {
		cleanupScheduler.Stop()
		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditService.Wait()
		if tracerShutdown != nil {
			if err := tracerShutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Error flushing traces")
			}
		}
	}

	Serve(router, cfg, onShutdown)
}
