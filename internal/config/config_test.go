package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Web.Addr != ":8081" {
		t.Errorf("expected default web addr :8081, got %s", cfg.Web.Addr)
	}
	if cfg.Web.GeneratorEndpoint != "http://localhost:8000/generate-uniform" {
		t.Errorf("unexpected generator endpoint: %s", cfg.Web.GeneratorEndpoint)
	}
	if cfg.Web.GeneratorTimeout != 60*time.Second {
		t.Errorf("unexpected generator timeout: %s", cfg.Web.GeneratorTimeout)
	}
	if cfg.Web.DefaultLocale != "ko" {
		t.Errorf("expected default locale ko, got %s", cfg.Web.DefaultLocale)
	}
	if cfg.Web.MaxInFlight != 8 {
		t.Errorf("expected 8 generations in flight, got %d", cfg.Web.MaxInFlight)
	}
	if cfg.Web.IsProduction() {
		t.Errorf("expected local environment by default")
	}
	if cfg.Web.UsesFakeGenerator() {
		t.Errorf("expected remote generator by default")
	}
	if cfg.Generator.Addr != ":8000" {
		t.Errorf("expected generator addr :8000, got %s", cfg.Generator.Addr)
	}
	if cfg.Generator.Backend != BackendReplicate {
		t.Errorf("expected replicate backend, got %s", cfg.Generator.Backend)
	}
	if len(cfg.Generator.CORSOrigins) != 1 || cfg.Generator.CORSOrigins[0] != "http://localhost:8081" {
		t.Errorf("unexpected cors origins: %v", cfg.Generator.CORSOrigins)
	}
	if cfg.Generator.RateLimit.PerMinute != 30 || cfg.Generator.RateLimit.Burst != 5 {
		t.Errorf("unexpected rate limit: %+v", cfg.Generator.RateLimit)
	}
	if cfg.Generator.TokenLoaded() {
		t.Errorf("expected no token without env")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"UNIFORM_WEB_ADDR":           ":9090",
		"UNIFORM_ENV":                "prod",
		"UNIFORM_GENERATOR_ENDPOINT": "fake",
		"UNIFORM_GENERATOR_TIMEOUT":  "5s",
		"UNIFORM_SESSION_HASH_KEY":   "hash-key",
		"UNIFORM_SESSION_BLOCK_KEY":  "0123456789abcdef",
		"UNIFORM_DEFAULT_LOCALE":     "EN",
		"UNIFORM_GENERATOR_BACKEND":  "genai",
		"GEMINI_API_KEY":             " key ",
		"REPLICATE_MODEL":            "owner/model",
		"REPLICATE_BASE_URL":         "http://replicate.local/",
		"UNIFORM_CORS_ORIGINS":       "http://a.example, ,http://b.example",
		"UNIFORM_RATELIMIT_PER_MIN":  "60",
		"UNIFORM_RATELIMIT_BURST":    "not-a-number",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Web.Addr != ":9090" || !cfg.Web.IsProduction() || !cfg.Web.UsesFakeGenerator() {
		t.Errorf("unexpected web config: %+v", cfg.Web)
	}
	if cfg.Web.GeneratorTimeout != 5*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.Web.GeneratorTimeout)
	}
	if cfg.Web.DefaultLocale != "en" {
		t.Errorf("expected lowercased locale, got %s", cfg.Web.DefaultLocale)
	}
	if cfg.Generator.Backend != BackendGenAI || !cfg.Generator.TokenLoaded() {
		t.Errorf("unexpected generator backend state: %+v", cfg.Generator)
	}
	if cfg.Generator.GeminiAPIKey != "key" {
		t.Errorf("expected trimmed key, got %q", cfg.Generator.GeminiAPIKey)
	}
	if cfg.Generator.ModelOverride != "owner/model" {
		t.Errorf("unexpected model override: %s", cfg.Generator.ModelOverride)
	}
	if cfg.Generator.ReplicateBaseURL != "http://replicate.local" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Generator.ReplicateBaseURL)
	}
	if len(cfg.Generator.CORSOrigins) != 2 {
		t.Errorf("expected two cors origins, got %v", cfg.Generator.CORSOrigins)
	}
	if cfg.Generator.RateLimit.PerMinute != 60 || cfg.Generator.RateLimit.Burst != 5 {
		t.Errorf("unexpected rate limit: %+v", cfg.Generator.RateLimit)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport UNIFORM_WEB_ADDR=\":7070\"\nUNIFORM_DEFAULT_LOCALE=en\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"UNIFORM_DEFAULT_LOCALE": "ko"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Web.Addr != ":7070" {
		t.Errorf("expected dotenv addr, got %s", cfg.Web.Addr)
	}
	if cfg.Web.DefaultLocale != "ko" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Web.DefaultLocale)
	}
}

func TestLoadInvalidFields(t *testing.T) {
	env := map[string]string{
		"UNIFORM_ENV":               "production",
		"UNIFORM_SESSION_BLOCK_KEY": "short",
		"UNIFORM_GENERATOR_BACKEND": "dalle",
		"UNIFORM_RATELIMIT_BURST":   "0",
		"UNIFORM_MAX_IN_FLIGHT":     "0",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{
		"Web.SessionHashKey":        true,
		"Web.SessionBlockKey":       true,
		"Generator.Backend":         true,
		"Generator.RateLimit.Burst": true,
		"Web.MaxInFlight":           true,
	}
	fields := vErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected invalid field %s", f)
		}
	}
}

type mapExpander map[string]string

func (m mapExpander) Expand(ctx context.Context, value string) (string, error) {
	if v, ok := m[value]; ok {
		return v, nil
	}
	return "", errors.New("unknown reference " + value)
}

func TestResolveSecrets(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{
		"UNIFORM_SESSION_BLOCK_KEY": "secret://session-block",
		"REPLICATE_API_TOKEN":       "sm://replicate-token",
		"GEMINI_API_KEY":            "literal-key",
		"UNIFORM_SECRETS_PROJECT":   " uniform-prod ",
	}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Secrets.Project != "uniform-prod" {
		t.Errorf("unexpected secrets project %q", cfg.Secrets.Project)
	}
	if cfg.Secrets.FallbackFile != ".secrets.local" {
		t.Errorf("unexpected fallback file %q", cfg.Secrets.FallbackFile)
	}

	err = cfg.ResolveSecrets(context.Background(), mapExpander{
		"secret://session-block": "0123456789abcdef",
		"sm://replicate-token":   " r8_token ",
	})
	if err != nil {
		t.Fatalf("ResolveSecrets returned error: %v", err)
	}
	if cfg.Web.SessionBlockKey != "0123456789abcdef" {
		t.Errorf("block key not resolved: %q", cfg.Web.SessionBlockKey)
	}
	if cfg.Generator.ReplicateToken != "r8_token" {
		t.Errorf("token not resolved: %q", cfg.Generator.ReplicateToken)
	}
	if cfg.Generator.GeminiAPIKey != "literal-key" {
		t.Errorf("literal value changed: %q", cfg.Generator.GeminiAPIKey)
	}
}

func TestResolveSecretsRevalidates(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{
		"UNIFORM_SESSION_BLOCK_KEY": "secret://session-block",
	}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	unresolved := cfg
	err = cfg.ResolveSecrets(context.Background(), mapExpander{"secret://session-block": "short"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := vErr.Fields(); len(got) != 1 || got[0] != "Web.SessionBlockKey" {
		t.Errorf("unexpected invalid fields %v", got)
	}

	err = unresolved.ResolveSecrets(context.Background(), mapExpander{})
	if err == nil || !strings.Contains(err.Error(), "Web.SessionBlockKey") {
		t.Errorf("expected resolve error naming the field, got %v", err)
	}
}
