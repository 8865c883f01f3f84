package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finitefield.org/uniform-studio/internal/secrets"
)

const (
	defaultEnvFile           = ".env"
	defaultWebAddr           = ":8081"
	defaultEnvironment       = "local"
	defaultGeneratorEndpoint = "http://localhost:8000/generate-uniform"
	defaultGeneratorTimeout  = 60 * time.Second
	defaultLocale            = "ko"
	defaultGeneratorAddr     = ":8000"
	defaultBackend           = BackendReplicate
	defaultReplicateBaseURL  = "https://api.replicate.com"
	defaultGenAIModel        = "imagen-3.0-generate-002"
	defaultCORSOrigin        = "http://localhost:8081"
	defaultRatePerMinute     = 30
	defaultMaxInFlight       = 8
	defaultRateBurst         = 5
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 120 * time.Second
)

// FakeEndpoint selects the in-process static generator instead of a remote endpoint.
const FakeEndpoint = "fake"

// Image generation backends served by cmd/generator.
const (
	BackendReplicate = "replicate"
	BackendGenAI     = "genai"
)

// Config captures all runtime configuration organised by binary.
type Config struct {
	Web       WebConfig
	Generator GeneratorConfig
	Secrets   SecretsConfig
}

// SecretsConfig locates secret:// references used by credential fields.
type SecretsConfig struct {
	Project      string
	FallbackFile string
}

// SecretExpander resolves secret references, returning literals unchanged.
type SecretExpander interface {
	Expand(ctx context.Context, value string) (string, error)
}

// ResolveSecrets replaces secret references held by credential fields and
// validates the result again.
func (c *Config) ResolveSecrets(ctx context.Context, expander SecretExpander) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"Web.SessionHashKey", &c.Web.SessionHashKey},
		{"Web.SessionBlockKey", &c.Web.SessionBlockKey},
		{"Generator.ReplicateToken", &c.Generator.ReplicateToken},
		{"Generator.GeminiAPIKey", &c.Generator.GeminiAPIKey},
	}
	for _, f := range fields {
		if !secrets.IsReference(*f.value) {
			continue
		}
		v, err := expander.Expand(ctx, *f.value)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", f.name, err)
		}
		*f.value = strings.TrimSpace(v)
	}
	return validateConfig(*c)
}

// WebConfig configures the page server.
type WebConfig struct {
	Addr              string
	Environment       string
	GeneratorEndpoint string
	GeneratorTimeout  time.Duration
	SessionHashKey    string
	SessionBlockKey   string
	DefaultLocale     string
	FirebaseProjectID string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	// MaxInFlight caps generations running at once across all visitors.
	MaxInFlight int
}

// IsProduction reports whether the web app runs with production safeguards.
func (c WebConfig) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "prod", "production":
		return true
	}
	return false
}

// UsesFakeGenerator reports whether submissions should be answered in-process.
func (c WebConfig) UsesFakeGenerator() bool {
	return strings.EqualFold(strings.TrimSpace(c.GeneratorEndpoint), FakeEndpoint)
}

// GeneratorConfig configures the image generation service.
type GeneratorConfig struct {
	Addr             string
	Backend          string
	ModelOverride    string
	ReplicateToken   string
	ReplicateBaseURL string
	GeminiAPIKey     string
	GenAIModel       string
	CORSOrigins      []string
	RateLimit        RateLimitConfig
}

// TokenLoaded reports whether the selected backend has credentials.
func (c GeneratorConfig) TokenLoaded() bool {
	if c.Backend == BackendGenAI {
		return c.GeminiAPIKey != ""
	}
	return c.ReplicateToken != ""
}

// RateLimitConfig controls per-client throttling on the generation endpoint.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// ValidationError is returned when configuration fields are invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the invalid field list.
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

// Load assembles the configuration from defaults, .env overrides and environment variables.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	_ = ctx
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
		Web: WebConfig{
			Addr:              stringWithDefault(lookup, "UNIFORM_WEB_ADDR", defaultWebAddr),
			Environment:       stringWithDefault(lookup, "UNIFORM_ENV", defaultEnvironment),
			GeneratorEndpoint: stringWithDefault(lookup, "UNIFORM_GENERATOR_ENDPOINT", defaultGeneratorEndpoint),
			GeneratorTimeout:  durationWithDefault(lookup, "UNIFORM_GENERATOR_TIMEOUT", defaultGeneratorTimeout),
			SessionHashKey:    stringWithDefault(lookup, "UNIFORM_SESSION_HASH_KEY", ""),
			SessionBlockKey:   stringWithDefault(lookup, "UNIFORM_SESSION_BLOCK_KEY", ""),
			DefaultLocale:     strings.ToLower(stringWithDefault(lookup, "UNIFORM_DEFAULT_LOCALE", defaultLocale)),
			FirebaseProjectID: stringWithDefault(lookup, "UNIFORM_FIREBASE_PROJECT_ID", ""),
			ReadTimeout:       durationWithDefault(lookup, "UNIFORM_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:      durationWithDefault(lookup, "UNIFORM_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			MaxInFlight:       intWithDefault(lookup, "UNIFORM_MAX_IN_FLIGHT", defaultMaxInFlight),
		},
		Generator: GeneratorConfig{
			Addr:             stringWithDefault(lookup, "UNIFORM_GENERATOR_ADDR", defaultGeneratorAddr),
			Backend:          strings.ToLower(stringWithDefault(lookup, "UNIFORM_GENERATOR_BACKEND", defaultBackend)),
			ModelOverride:    strings.TrimSpace(stringWithDefault(lookup, "REPLICATE_MODEL", "")),
			ReplicateToken:   strings.TrimSpace(stringWithDefault(lookup, "REPLICATE_API_TOKEN", "")),
			ReplicateBaseURL: strings.TrimRight(stringWithDefault(lookup, "REPLICATE_BASE_URL", defaultReplicateBaseURL), "/"),
			GeminiAPIKey:     strings.TrimSpace(stringWithDefault(lookup, "GEMINI_API_KEY", "")),
			GenAIModel:       stringWithDefault(lookup, "UNIFORM_GENAI_MODEL", defaultGenAIModel),
			CORSOrigins:      csvWithDefault(lookup, "UNIFORM_CORS_ORIGINS", []string{defaultCORSOrigin}),
			RateLimit: RateLimitConfig{
				PerMinute: intWithDefault(lookup, "UNIFORM_RATELIMIT_PER_MIN", defaultRatePerMinute),
				Burst:     intWithDefault(lookup, "UNIFORM_RATELIMIT_BURST", defaultRateBurst),
			},
		},
		Secrets: SecretsConfig{
			Project:      strings.TrimSpace(stringWithDefault(lookup, "UNIFORM_SECRETS_PROJECT", "")),
			FallbackFile: stringWithDefault(lookup, "UNIFORM_SECRETS_FALLBACK_FILE", secrets.DefaultFallbackFile),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Web.Addr == "" {
		invalid = append(invalid, "Web.Addr")
	}
	if cfg.Web.GeneratorTimeout <= 0 {
		invalid = append(invalid, "Web.GeneratorTimeout")
	}
	if cfg.Web.MaxInFlight <= 0 {
		invalid = append(invalid, "Web.MaxInFlight")
	}
	if cfg.Web.IsProduction() && cfg.Web.SessionHashKey == "" {
		invalid = append(invalid, "Web.SessionHashKey")
	}
	if !secrets.IsReference(cfg.Web.SessionBlockKey) {
		switch len(cfg.Web.SessionBlockKey) {
		case 0, 16, 24, 32:
		default:
			invalid = append(invalid, "Web.SessionBlockKey")
		}
	}
	if cfg.Generator.Addr == "" {
		invalid = append(invalid, "Generator.Addr")
	}
	switch cfg.Generator.Backend {
	case BackendReplicate, BackendGenAI:
	default:
		invalid = append(invalid, "Generator.Backend")
	}
	if cfg.Generator.RateLimit.PerMinute <= 0 {
		invalid = append(invalid, "Generator.RateLimit.PerMinute")
	}
	if cfg.Generator.RateLimit.Burst <= 0 {
		invalid = append(invalid, "Generator.RateLimit.Burst")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
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

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
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
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
