package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

const (
	defaultEnvFile           = ".env"
	defaultHTTPTimeout       = 30 * time.Second
	defaultIdempotencyHeader = "Idempotency-Key"
	defaultTenantCurrency    = "USD"
	defaultProductStatus     = "active"
	defaultLogLevel          = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Backend BackendConfig
	Editor  EditorConfig
	Log     LogConfig
}

// BackendConfig configures the catalog API client.
type BackendConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	IdempotencyHeader string
}

// EditorConfig holds defaults applied to fresh drafts.
type EditorConfig struct {
	TenantCurrency string
	DefaultStatus  string
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration by combining defaults, .env overrides, environment
// variables and explicit maps, in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Backend: BackendConfig{
			BaseURL:           strings.TrimSpace(stringWithDefault(lookup, "CATALOG_API_BASE_URL", "")),
			Token:             strings.TrimSpace(stringWithDefault(lookup, "CATALOG_API_TOKEN", "")),
			Timeout:           durationWithDefault(lookup, "CATALOG_HTTP_TIMEOUT", defaultHTTPTimeout),
			IdempotencyHeader: stringWithDefault(lookup, "CATALOG_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
		},
		Editor: EditorConfig{
			TenantCurrency: strings.ToUpper(strings.TrimSpace(stringWithDefault(lookup, "CATALOG_TENANT_CURRENCY", defaultTenantCurrency))),
			DefaultStatus:  strings.TrimSpace(stringWithDefault(lookup, "CATALOG_DEFAULT_STATUS", defaultProductStatus)),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Backend.BaseURL == "" {
		missing = append(missing, "Backend.BaseURL")
	} else if parsed, err := url.Parse(cfg.Backend.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		missing = append(missing, "Backend.BaseURL")
	}
	if cfg.Backend.Timeout <= 0 {
		missing = append(missing, "Backend.Timeout")
	}
	if strings.TrimSpace(cfg.Backend.IdempotencyHeader) == "" {
		missing = append(missing, "Backend.IdempotencyHeader")
	}
	if _, err := currency.ParseISO(cfg.Editor.TenantCurrency); err != nil {
		missing = append(missing, "Editor.TenantCurrency")
	}
	if cfg.Editor.DefaultStatus == "" {
		missing = append(missing, "Editor.DefaultStatus")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare integers are read as seconds.
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
