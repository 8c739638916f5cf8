package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateStoreConfigByEnv(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "dev tolerates missing database",
			cfg:  Config{Env: "dev", LLMProvider: "openrouter", QuestionDuration: time.Minute},
		},
		{
			name:    "production requires database",
			cfg:     Config{Env: "production", LLMProvider: "openrouter", LLMAPIKey: "k", JWTSecret: "s", QuestionDuration: time.Minute},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "production requires llm key",
			cfg:     Config{Env: "production", LLMProvider: "openrouter", DatabaseURL: "postgres://x", JWTSecret: "s", QuestionDuration: time.Minute},
			wantErr: "LLM_API_KEY is required",
		},
		{
			name:    "gemini key checked for gemini provider",
			cfg:     Config{Env: "staging", LLMProvider: "gemini", DatabaseURL: "postgres://x", JWTSecret: "s", QuestionDuration: time.Minute},
			wantErr: "GEMINI_API_KEY is required",
		},
		{
			name:    "database url format",
			cfg:     Config{Env: "dev", DatabaseURL: "mysql://x", QuestionDuration: time.Minute},
			wantErr: "postgres URL",
		},
		{
			name: "production voice requires webhook secret",
			cfg: Config{Env: "production", LLMProvider: "openrouter", LLMAPIKey: "k", DatabaseURL: "postgres://x", JWTSecret: "s",
				VapiAPIKey: "vk", QuestionDuration: time.Minute},
			wantErr: "VAPI_WEBHOOK_SECRET is required",
		},
		{
			name: "dev voice without webhook secret",
			cfg:  Config{Env: "dev", LLMProvider: "openrouter", VapiAPIKey: "vk", QuestionDuration: time.Minute},
		},
		{
			name: "production voice with webhook secret",
			cfg: Config{Env: "production", LLMProvider: "openrouter", LLMAPIKey: "k", DatabaseURL: "postgres://x", JWTSecret: "s",
				VapiAPIKey: "vk", VapiSecret: "ws", QuestionDuration: time.Minute},
		},
		{
			name: "production complete",
			cfg:  Config{Env: "production", LLMProvider: "openrouter", LLMAPIKey: "k", DatabaseURL: "postgresql://x", JWTSecret: "s", QuestionDuration: time.Minute},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadReadsDotenvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nLLM_MODEL=from-file\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("PORT", "")
	if err := os.Unsetenv("PORT"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("INTERVIEW_QUESTION_SECONDS", "90")
	t.Setenv("ENV", "prod")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Fatalf("expected PORT from .env, got %q", cfg.Port)
	}
	if cfg.LLMModel != "from-env" {
		t.Fatalf("expected env to win over .env, got %q", cfg.LLMModel)
	}
	if cfg.QuestionDuration != 90*time.Second {
		t.Fatalf("expected 90s question duration, got %s", cfg.QuestionDuration)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected normalized env production, got %q", cfg.Env)
	}
}
