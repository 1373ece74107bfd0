package config

import (
	"time"

	redisclient "github.com/vietddude/fencer/internal/infra/redis"
	"github.com/vietddude/fencer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Auth      AuthConfig         `yaml:"auth"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
	Retention RetentionConfig    `yaml:"retention"`
	Recovery  RecoveryConfig     `yaml:"recovery"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port serves the public API.
	Port int `yaml:"port"`
	// HealthPort serves /health and /metrics separately from the API.
	HealthPort int `yaml:"health_port"`
	// GRPCHealthPort serves the gRPC health protocol. 0 disables it.
	GRPCHealthPort int `yaml:"grpc_health_port"`
	// CORSOrigins are allowed browser origins in debug mode.
	CORSOrigins []string `yaml:"cors_origins"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetentionConfig controls the background pruner.
type RetentionConfig struct {
	// DeletedFences keeps soft-deleted fences recoverable for this long.
	// 0 = keep forever.
	DeletedFences time.Duration `yaml:"deleted_fences"`
	// ExpiredSessions keeps expired/revoked sessions for this long.
	// 0 = prune as soon as expired.
	ExpiredSessions time.Duration `yaml:"expired_sessions"`
}

// RecoveryConfig tunes the client-side recovery controller used by the
// watch command.
type RecoveryConfig struct {
	MaxRetries int `yaml:"max_retries"`
}
