package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults
// for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from tagged variables.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		// Try primary env var, then alternate
		value := strings.TrimSpace(getenv(envName))
		if value == "" && envAlt != "" {
			value = strings.TrimSpace(getenv(envAlt))
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Split comma-separated values, trim whitespace
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is usable and reports every
// problem at once. Object store credentials are checked by the storage
// client when it is built.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "SERVER_MAX_BODY_BYTES must be positive")
	}

	// Storage validation
	switch strings.ToLower(c.Storage.Backend) {
	case BackendS3, BackendLocal:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND (%q) must be one of: s3, local", c.Storage.Backend))
	}
	if c.Storage.InputContainer == "" {
		errs = append(errs, "INPUT_CONTAINER is required")
	}
	if c.Storage.OutputContainer == "" {
		errs = append(errs, "OUTPUT_CONTAINER is required")
	}

	if c.Hyper.StartTimeout <= 0 {
		errs = append(errs, "HYPER_START_TIMEOUT must be positive")
	}
	if c.Hyper.StopTimeout <= 0 {
		errs = append(errs, "HYPER_STOP_TIMEOUT must be positive")
	}

	if len(c.Extract.Schemas) == 0 {
		errs = append(errs, "EXPORT_SCHEMAS must list at least one schema")
	}
	if c.Extract.NameSuffixPattern != "" {
		if _, err := regexp.Compile(c.Extract.NameSuffixPattern); err != nil {
			errs = append(errs, fmt.Sprintf("EXTRACT_NAME_SUFFIX_PATTERN is not a valid regular expression: %v", err))
		}
	}
	if c.Extract.TableTimeout < 0 {
		errs = append(errs, "EXTRACT_TABLE_TIMEOUT must be non-negative")
	}

	// Job validation
	if c.Jobs.MaxConcurrent <= 0 {
		errs = append(errs, "JOB_MAX_CONCURRENT must be positive")
	}
	if c.Jobs.MaxWaitTime <= 0 {
		errs = append(errs, "JOB_MAX_WAIT_TIME must be positive")
	}
	if c.Jobs.Timeout < 0 {
		errs = append(errs, "JOB_TIMEOUT must be non-negative")
	}
	if c.Server.RequestTimeout > 0 && c.Jobs.Timeout > c.Server.RequestTimeout {
		errs = append(errs, fmt.Sprintf("JOB_TIMEOUT (%s) must not exceed SERVER_REQUEST_TIMEOUT (%s)",
			c.Jobs.Timeout, c.Server.RequestTimeout))
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ExtractLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_EXTRACT must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a representation of the config that is safe to log.
// Storage credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q, RequestTimeout: %s}, ", c.Server.Addr(), c.Server.RequestTimeout)
	fmt.Fprintf(&b, "Storage: {Backend: %q, Endpoint: %q, AccessKey: %s, SecretKey: %s, Input: %q, Output: %q}, ",
		c.Storage.Backend, c.Storage.Endpoint, mask(c.Storage.AccessKey), mask(c.Storage.SecretKey),
		c.Storage.InputContainer, c.Storage.OutputContainer)
	fmt.Fprintf(&b, "Hyper: {BinaryPath: %q, Endpoint: %q}, ", c.Hyper.BinaryPath, c.Hyper.Endpoint)
	fmt.Fprintf(&b, "Extract: {Schemas: %v, NameSuffixPattern: %q, TableTimeout: %s}, ",
		c.Extract.Schemas, c.Extract.NameSuffixPattern, c.Extract.TableTimeout)
	fmt.Fprintf(&b, "Jobs: {MaxConcurrent: %d, Timeout: %s}, ", c.Jobs.MaxConcurrent, c.Jobs.Timeout)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, Extract: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.ExtractLimit)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
