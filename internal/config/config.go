// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/balance-validator/internal/analysis"
	"github.com/jonathan/balance-validator/internal/storage"
)

// DefaultQuotaBytes mirrors the few megabytes a browser allows per origin.
const DefaultQuotaBytes = 5 << 20

// Config is the full configuration. It can be loaded from a JSON or YAML
// file and is then overlaid with environment variables and CLI flags.
type Config struct {
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	History  HistoryConfig  `json:"history" yaml:"history"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Verbose  bool           `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// AnalysisConfig selects the analysis backend.
type AnalysisConfig struct {
	Backend      string `json:"backend,omitempty" yaml:"backend,omitempty"`               // auto, http, gemini or fixture
	BaseURL      string `json:"base_url,omitempty" yaml:"base_url,omitempty"`             // analysis endpoint base URL
	GeminiAPIKey string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"` // Gemini API key
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`                   // Gemini model override
	Timeout      string `json:"timeout,omitempty" yaml:"timeout,omitempty"`               // e.g. "120s"; empty means no limit
}

// HistoryConfig selects where history is persisted.
type HistoryConfig struct {
	Backend    string      `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path       string      `json:"path,omitempty" yaml:"path,omitempty"`
	DSN        string      `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	QuotaBytes *int64      `json:"quota_bytes,omitempty" yaml:"quota_bytes,omitempty"` // nil means default, 0 unlimited
	MinIO      MinIOConfig `json:"minio,omitempty" yaml:"minio,omitempty"`
}

// MinIOConfig configures the object storage history backend.
type MinIOConfig struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	quota := int64(DefaultQuotaBytes)
	return Config{
		Analysis: AnalysisConfig{
			Backend: analysis.BackendAuto,
			Timeout: "180s",
		},
		History: HistoryConfig{
			Backend:    storage.BackendSQLite,
			Path:       defaultHistoryPath(),
			QuotaBytes: &quota,
			MinIO:      MinIOConfig{Bucket: "balance-validator"},
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:8080"},
		},
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "balance_validator.db"
	}
	return filepath.Join(dir, "balance-validator", "history.db")
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overlays environment variables onto c. Set variables win over
// file values.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Analysis.Backend, "ANALYSIS_BACKEND")
	set(&c.Analysis.BaseURL, "ANALYSIS_BASE_URL", "VITE_API_BASE_URL")
	set(&c.Analysis.GeminiAPIKey, "GEMINI_API_KEY", "VITE_GEMINI_API_KEY")
	set(&c.Analysis.Model, "GEMINI_MODEL")
	set(&c.Analysis.Timeout, "ANALYSIS_TIMEOUT")
	set(&c.History.Backend, "HISTORY_BACKEND")
	set(&c.History.Path, "HISTORY_PATH")
	set(&c.History.DSN, "HISTORY_DSN", "DATABASE_URL")
	set(&c.History.MinIO.Endpoint, "MINIO_ENDPOINT")
	set(&c.History.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	set(&c.History.MinIO.SecretKey, "MINIO_SECRET_KEY")
	set(&c.History.MinIO.Bucket, "MINIO_BUCKET")

	if v := getenv("HISTORY_QUOTA_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid HISTORY_QUOTA_BYTES: %v", err)
		}
		c.History.QuotaBytes = &n
	}
	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Server.Port = n
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.Analysis.Backend {
	case "", analysis.BackendAuto, analysis.BackendHTTP, analysis.BackendGemini, analysis.BackendFixture:
	default:
		return fmt.Errorf("config error: unknown analysis backend %q", c.Analysis.Backend)
	}
	if _, err := c.AnalysisTimeout(); err != nil {
		return err
	}

	switch c.History.Backend {
	case "", storage.BackendMemory:
	case storage.BackendFile, storage.BackendSQLite:
		if c.History.Path == "" {
			return fmt.Errorf("config error: history backend %q requires 'path'", c.History.Backend)
		}
	case storage.BackendPostgres, storage.BackendMySQL:
		if c.History.DSN == "" {
			return fmt.Errorf("config error: history backend %q requires 'dsn'", c.History.Backend)
		}
	case storage.BackendMinIO:
		if c.History.MinIO.Endpoint == "" || c.History.MinIO.Bucket == "" {
			return fmt.Errorf("config error: history backend %q requires 'minio.endpoint' and 'minio.bucket'", c.History.Backend)
		}
	default:
		return fmt.Errorf("config error: unknown history backend %q", c.History.Backend)
	}
	if c.History.QuotaBytes != nil && *c.History.QuotaBytes < 0 {
		return fmt.Errorf("config error: 'quota_bytes' must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	return nil
}

// AnalysisTimeout parses the analysis timeout. Empty means no limit.
func (c *Config) AnalysisTimeout() (time.Duration, error) {
	if c.Analysis.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Analysis.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config error: invalid analysis timeout %q", c.Analysis.Timeout)
	}
	return d, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Analysis.Backend == "" {
		result.Analysis.Backend = defaults.Analysis.Backend
	}
	if result.Analysis.BaseURL == "" {
		result.Analysis.BaseURL = defaults.Analysis.BaseURL
	}
	if result.Analysis.GeminiAPIKey == "" {
		result.Analysis.GeminiAPIKey = defaults.Analysis.GeminiAPIKey
	}
	if result.Analysis.Model == "" {
		result.Analysis.Model = defaults.Analysis.Model
	}
	if result.Analysis.Timeout == "" {
		result.Analysis.Timeout = defaults.Analysis.Timeout
	}
	if result.History.Backend == "" {
		result.History.Backend = defaults.History.Backend
	}
	if result.History.Path == "" {
		result.History.Path = defaults.History.Path
	}
	if result.History.DSN == "" {
		result.History.DSN = defaults.History.DSN
	}
	if result.History.MinIO.Bucket == "" {
		result.History.MinIO.Bucket = defaults.History.MinIO.Bucket
	}
	if result.History.MinIO.Region == "" {
		result.History.MinIO.Region = defaults.History.MinIO.Region
	}

	// Pointer and numeric fields: use default if unset
	if result.History.QuotaBytes == nil {
		result.History.QuotaBytes = defaults.History.QuotaBytes
	}
	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}
	if len(result.Server.AllowedOrigins) == 0 {
		result.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// StorageOptions converts the history settings for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	opts := storage.Options{
		Backend: c.History.Backend,
		Path:    c.History.Path,
		DSN:     c.History.DSN,
		MinIO: storage.MinIOOptions{
			Endpoint:  c.History.MinIO.Endpoint,
			AccessKey: c.History.MinIO.AccessKey,
			SecretKey: c.History.MinIO.SecretKey,
			Bucket:    c.History.MinIO.Bucket,
			Region:    c.History.MinIO.Region,
			UseSSL:    c.History.MinIO.UseSSL,
		},
	}
	if c.History.QuotaBytes != nil {
		opts.QuotaBytes = *c.History.QuotaBytes
	}
	return opts
}

// AnalysisOptions converts the analysis settings for analysis.New.
func (c *Config) AnalysisOptions() (analysis.Options, error) {
	timeout, err := c.AnalysisTimeout()
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{
		Backend:      c.Analysis.Backend,
		BaseURL:      c.Analysis.BaseURL,
		GeminiAPIKey: c.Analysis.GeminiAPIKey,
		Model:        c.Analysis.Model,
		Timeout:      timeout,
	}, nil
}

// Load reads the optional file at path, overlays the environment and fills
// defaults, then validates the result.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
