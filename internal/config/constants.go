package config

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./mycv.db"

	// DefaultEnv is used when APP_ENV is not set
	DefaultEnv = "development"

	DefaultSessionCookieName = "session"
)

// scrypt defaults, compatible with credentials produced by Node's crypto.scrypt
const (
	DefaultScryptN      = 16384
	DefaultScryptR      = 8
	DefaultScryptP      = 1
	DefaultScryptKeyLen = 32
	DefaultSaltSize     = 8
)
