// Package config defines the global configuration for the snapcircle backend.
// Configuration is loaded once at process initialization and is immutable
// thereafter, following 12-Factor principles: values come from the OS
// environment, with a .env file as a local-development fallback.
//
// Any missing required value or invalid format causes the process to exit
// immediately on startup (fail fast).
package config

import "time"

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	APNs     APNsConfig
	Auth     AuthConfig
	Monitor  MonitorConfig
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// AWSConfig holds the SQS queue URLs for the photo ingest pipeline and
// regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	PhotoUploadedQueue string `envconfig:"SQS_PHOTO_UPLOADED" validate:"required,url"`
	PhotoResizedQueue  string `envconfig:"SQS_PHOTO_RESIZED" validate:"required,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// APNsConfig holds Apple Push Notification service credentials. Token-based
// authentication (p8 signing key) is used rather than certificates.
type APNsConfig struct {
	KeyPath string `envconfig:"APNS_KEY_PATH" validate:"required"`
	KeyID   string `envconfig:"APNS_KEY_ID" validate:"required"`
	TeamID  string `envconfig:"APNS_TEAM_ID" validate:"required"`
	Topic   string `envconfig:"APNS_TOPIC" validate:"required"`

	Production bool `envconfig:"APNS_PRODUCTION" default:"false"`
}

// AuthConfig holds the JWT verification secret for the API boundary.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" validate:"required"`
}

// MonitorConfig tunes the pending-notification monitor loop.
type MonitorConfig struct {
	// Interval is both the tick cadence and the step by which the reference
	// instant advances each tick.
	Interval time.Duration `envconfig:"MONITOR_INTERVAL" default:"10s" validate:"min=1s"`
}
