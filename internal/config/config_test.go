package config

import (
	"strings"
	"testing"
	"time"
)

// env returns a lookup over vars with the required containers set.
func env(vars map[string]string) func(string) string {
	all := map[string]string{
		"INPUT_CONTAINER":  "workbooks",
		"OUTPUT_CONTAINER": "datasets",
	}
	for k, v := range vars {
		all[k] = v
	}
	return func(key string) string { return all[key] }
}

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8000, ShutdownTimeout: time.Second, RequestTimeout: time.Hour, MaxBodyBytes: 1024},
		Storage: StorageConfig{Backend: BackendS3, InputContainer: "in", OutputContainer: "out"},
		Hyper:   HyperConfig{StartTimeout: time.Second, StopTimeout: time.Second},
		Extract: ExtractConfig{Schemas: []string{"Extract"}},
		Jobs:    JobsConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ExtractLimit: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8000)
	}
	if cfg.Storage.Backend != BackendS3 {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, BackendS3)
	}
	if cfg.Hyper.BinaryPath != "hyperd" {
		t.Errorf("Hyper.BinaryPath = %q, want hyperd", cfg.Hyper.BinaryPath)
	}
	if len(cfg.Extract.Schemas) != 1 || cfg.Extract.Schemas[0] != "Extract" {
		t.Errorf("Extract.Schemas = %v, want [Extract]", cfg.Extract.Schemas)
	}
	if cfg.Extract.TableTimeout != 10*time.Minute {
		t.Errorf("Extract.TableTimeout = %v, want 10m", cfg.Extract.TableTimeout)
	}
	if cfg.Jobs.MaxConcurrent != 2 {
		t.Errorf("Jobs.MaxConcurrent = %d, want 2", cfg.Jobs.MaxConcurrent)
	}
	if cfg.Extract.WorkDir != "" {
		t.Errorf("Extract.WorkDir = %q, want empty", cfg.Extract.WorkDir)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SERVER_PORT":                 "9090",
		"STORAGE_BACKEND":             "local",
		"EXPORT_SCHEMAS":              "Extract, Staging",
		"EXTRACT_NAME_SUFFIX_PATTERN": `_[0-9A-F]{32}$`,
		"EXTRACTION_TEMP_DIR":         "/var/tmp/jobs",
		"JOB_TIMEOUT":                 "5m",
		"LOG_LEVEL":                   "debug",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Storage.Backend != BackendLocal {
		t.Errorf("Storage.Backend = %q, want local", cfg.Storage.Backend)
	}
	if got := strings.Join(cfg.Extract.Schemas, "|"); got != "Extract|Staging" {
		t.Errorf("Extract.Schemas = %q, want Extract|Staging", got)
	}
	if cfg.Extract.WorkDir != "/var/tmp/jobs" {
		t.Errorf("Extract.WorkDir = %q, want /var/tmp/jobs", cfg.Extract.WorkDir)
	}
	if cfg.Jobs.Timeout != 5*time.Minute {
		t.Errorf("Jobs.Timeout = %v, want 5m", cfg.Jobs.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"PORT":                  "3000",
		"AWS_ACCESS_KEY_ID":     "AKIA",
		"AWS_SECRET_ACCESS_KEY": "shh",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Storage.AccessKey != "AKIA" || cfg.Storage.SecretKey != "shh" {
		t.Errorf("storage keys not read from AWS_* fallbacks: %q %q", cfg.Storage.AccessKey, cfg.Storage.SecretKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := LoadFrom(func(string) string { return "" })
	if err == nil {
		t.Fatal("LoadFrom() expected error for missing INPUT_CONTAINER")
	}
	if !strings.Contains(err.Error(), "INPUT_CONTAINER") {
		t.Errorf("error should mention INPUT_CONTAINER: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{"JOB_TIMEOUT": "soon"}))
	if err == nil {
		t.Fatal("LoadFrom() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "JOB_TIMEOUT") {
		t.Errorf("error should mention JOB_TIMEOUT: %v", err)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"TRUSTED_PROXIES": "10.0.0.0/8, 172.16.0.0/12 , ,192.168.0.0/16",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "azure" }, "STORAGE_BACKEND"},
		{"missing output container", func(c *Config) { c.Storage.OutputContainer = "" }, "OUTPUT_CONTAINER"},
		{"no schemas", func(c *Config) { c.Extract.Schemas = nil }, "EXPORT_SCHEMAS"},
		{"bad suffix pattern", func(c *Config) { c.Extract.NameSuffixPattern = "_[0-9" }, "EXTRACT_NAME_SUFFIX_PATTERN"},
		{"job longer than request", func(c *Config) { c.Jobs.Timeout = 2 * time.Hour }, "JOB_TIMEOUT"},
		{"rate limit without extract limit", func(c *Config) { c.Rate.ExtractLimit = 0 }, "RATE_LIMIT_EXTRACT"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8000, "0.0.0.0:8000"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"::1", 443, "[::1]:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Addr(); got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.AccessKey = "AKIAEXAMPLE"
	cfg.Storage.SecretKey = "wJalrXUtnFEMI"

	str := cfg.String()
	if strings.Contains(str, "AKIAEXAMPLE") || strings.Contains(str, "wJalrXUtnFEMI") {
		t.Error("String() should mask storage credentials")
	}
	if !strings.Contains(str, "[MASKED]") {
		t.Error("String() should contain MASKED placeholder")
	}
}
