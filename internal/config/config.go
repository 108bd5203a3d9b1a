// Package config loads the service configuration from environment
// variables, applies defaults and validates everything on startup so a
// misconfigured process fails before it accepts requests.
package config

import (
	"net"
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Hyper    HyperConfig
	Extract  ExtractConfig
	Jobs     JobsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port also reads PORT, which hosting platforms set.
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8000"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout must outlast the longest extraction job.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30m"`

	// MaxBodyBytes caps the size of a request body.
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"1048576"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	// Backend is "s3" for any S3-compatible endpoint or "local" for a
	// directory tree.
	Backend string `env:"STORAGE_BACKEND" default:"s3"`

	Endpoint  string `env:"STORAGE_ENDPOINT" envAlt:"S3_ENDPOINT"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envAlt:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`
	Region    string `env:"STORAGE_REGION" default:"us-east-1"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" default:"false"`

	// LocalRoot holds the buckets of the local backend.
	LocalRoot string `env:"STORAGE_LOCAL_ROOT" default:"./blobstore"`

	InputContainer  string `env:"INPUT_CONTAINER" required:"true"`
	OutputContainer string `env:"OUTPUT_CONTAINER" required:"true"`
}

// HyperConfig controls how extract files are opened.
type HyperConfig struct {
	// BinaryPath is the hyperd executable started per job.
	BinaryPath string `env:"HYPERD_PATH" default:"hyperd"`

	// Endpoint is host:port of a running Hyper server. When set, no
	// process is started.
	Endpoint string `env:"HYPER_ENDPOINT"`

	User         string        `env:"HYPER_USER" default:"tableau_internal_user"`
	LogDir       string        `env:"HYPER_LOG_DIR"`
	StartTimeout time.Duration `env:"HYPER_START_TIMEOUT" default:"30s"`
	StopTimeout  time.Duration `env:"HYPER_STOP_TIMEOUT" default:"10s"`
}

// ExtractConfig holds table export settings.
type ExtractConfig struct {
	// Schemas lists the schemas whose tables are exported.
	Schemas []string `env:"EXPORT_SCHEMAS" default:"Extract"`

	// NameSuffixPattern is a regular expression for the suffix stripped
	// from table names. Empty keeps everything before the first underscore.
	NameSuffixPattern string `env:"EXTRACT_NAME_SUFFIX_PATTERN"`

	// TableTimeout bounds the export of one table; 0 disables the bound.
	TableTimeout time.Duration `env:"EXTRACT_TABLE_TIMEOUT" default:"10m"`

	// WorkDir overrides the base directory of job work dirs.
	WorkDir string `env:"EXTRACTION_TEMP_DIR"`
}

// JobsConfig bounds extraction jobs.
type JobsConfig struct {
	MaxConcurrent int           `env:"JOB_MAX_CONCURRENT" default:"2"`
	MaxWaitTime   time.Duration `env:"JOB_MAX_WAIT_TIME" default:"30s"`
	Timeout       time.Duration `env:"JOB_TIMEOUT" default:"25m"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to every route.
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ExtractLimit applies to POST /extract-data.
	ExtractLimit int `env:"RATE_LIMIT_EXTRACT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigin is the single origin allowed by CORS. Empty disables
	// CORS headers.
	AllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
