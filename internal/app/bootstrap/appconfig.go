package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (TASKBOARD_*), config
// files, or command-line flags, loaded in LoadConfig. Framework settings
// such as ports, TLS, log level and CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Cookie sessions
	SessionKey    string // signing key; must be strong in production
	SessionName   string
	SessionDomain string // blank means current host
	SessionMaxAge time.Duration

	// Bearer tokens issued at login
	TokenSecret string
	TokenTTL    time.Duration

	// Attachment storage
	UploadPath     string
	UploadMaxBytes int64

	// Invites created without an explicit expiry get this lifetime; zero
	// means they never expire.
	InviteDefaultTTL time.Duration

	// Spent invites are swept every InviteCleanupInterval once they have
	// been expired or used up for InviteRetention.
	InviteCleanupInterval time.Duration
	InviteRetention       time.Duration

	// Login throttling per client IP
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditLogAccess string

	// SuperAdmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string
}
