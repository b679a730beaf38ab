package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Session
		Logging
		Metrics
		Tracing
		Audit
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		Env                      string // APP_ENV, selects the .env.<env> file
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // sqlite file
		DSN    string // postgres connection string
		Debug  bool   // log every SQL statement
	}
	Auth struct {
		// scrypt parameters for credential hashing
		ScryptN        int
		ScryptR        int
		ScryptP        int
		ScryptKeyLen   int
		SaltSize       int
		AdminByDefault bool // new signups get the admin flag

		RateLimitEnabled bool
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		CSRFEnabled bool
		CSRFSecret  string
	}
	Session struct {
		Keys       []string // newest first; older keys only decode
		MaxAge     time.Duration
		CookieName string
		Secure     bool // Set to false for local dev without HTTPS
	}
	Logging struct {
		Level  string
		Format string // "json" or "console"
	}
	Metrics struct {
		Enabled bool
	}
	Tracing struct {
		Enabled     bool
		Endpoint    string
		SampleRate  float64
		ServiceName string
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

var ErrNoSessionKeys = errors.New("SESSION_KEYS must be set outside development and test")

// loadEnvFile loads .env.<APP_ENV> into the process environment.
// Variables that are already set win over the file.
func loadEnvFile() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = DefaultEnv
	}
	_ = godotenv.Load(".env." + env)
}

// splitKeys parses a comma separated key list, dropping blanks.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func NewConfig() *Config {
	loadEnvFile()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", DefaultEnv)
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_debug", false)

	// Auth defaults
	v.SetDefault("auth_scrypt_n", DefaultScryptN)
	v.SetDefault("auth_scrypt_r", DefaultScryptR)
	v.SetDefault("auth_scrypt_p", DefaultScryptP)
	v.SetDefault("auth_scrypt_key_len", DefaultScryptKeyLen)
	v.SetDefault("auth_salt_size", DefaultSaltSize)
	v.SetDefault("auth_admin_by_default", false)
	v.SetDefault("auth_rate_limit_enabled", false)
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("auth_csrf_enabled", false)
	v.SetDefault("auth_csrf_secret", "")

	// Session defaults
	v.SetDefault("session_keys", "")
	v.SetDefault("session_max_age", "24h")
	v.SetDefault("session_cookie_name", DefaultSessionCookieName)
	v.SetDefault("session_secure", true) // HTTPS-only cookies

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_endpoint", "localhost:4318")
	v.SetDefault("tracing_sample_rate", 1.0)
	v.SetDefault("tracing_service_name", "mycv")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *") // Daily at 03:00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			Env:                      v.GetString("APP_ENV"),
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
			Debug:  v.GetBool("DATABASE_DEBUG"),
		},
		Auth: Auth{
			ScryptN:          v.GetInt("AUTH_SCRYPT_N"),
			ScryptR:          v.GetInt("AUTH_SCRYPT_R"),
			ScryptP:          v.GetInt("AUTH_SCRYPT_P"),
			ScryptKeyLen:     v.GetInt("AUTH_SCRYPT_KEY_LEN"),
			SaltSize:         v.GetInt("AUTH_SALT_SIZE"),
			AdminByDefault:   v.GetBool("AUTH_ADMIN_BY_DEFAULT"),
			RateLimitEnabled: v.GetBool("AUTH_RATE_LIMIT_ENABLED"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			CSRFSecret:       v.GetString("AUTH_CSRF_SECRET"),
		},
		Session: Session{
			Keys:       splitKeys(v.GetString("SESSION_KEYS")),
			MaxAge:     v.GetDuration("SESSION_MAX_AGE"),
			CookieName: v.GetString("SESSION_COOKIE_NAME"),
			Secure:     v.GetBool("SESSION_SECURE"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Tracing: Tracing{
			Enabled:     v.GetBool("TRACING_ENABLED"),
			Endpoint:    v.GetString("TRACING_ENDPOINT"),
			SampleRate:  v.GetFloat64("TRACING_SAMPLE_RATE"),
			ServiceName: v.GetString("TRACING_SERVICE_NAME"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}

// IsDevelopment reports whether the process runs in a local environment
// where generated, non-persistent secrets are acceptable.
func (c *Config) IsDevelopment() bool {
	return c.Global.Env == "development" || c.Global.Env == "test"
}

// Validate checks settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	if len(c.Session.Keys) == 0 && !c.IsDevelopment() {
		return ErrNoSessionKeys
	}
	if c.Database.Driver == DatabaseDriverPostgres && c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required for the postgres driver")
	}
	if c.Database.Driver != DatabaseDriverSQLite && c.Database.Driver != DatabaseDriverPostgres {
		return errors.New("DATABASE_DRIVER must be sqlite or postgres")
	}
	return nil
}
