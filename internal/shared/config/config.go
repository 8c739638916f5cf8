package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"recruitai-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LLMProvider  string
	LLMModel     string
	LLMAPIKey    string
	LLMBaseURL   string
	GeminiAPIKey string
	LLMTimeout   time.Duration
	AppURL       string
	VapiAPIKey   string
	VapiBaseURL  string
	VapiSecret   string
	RedisURL     string
	JWTSecret    string

	QuestionDuration    time.Duration
	InterviewStaleAfter time.Duration
	ReconcileSchedule   string
	SubmissionDedupeTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files; existing variables win.
	for _, path := range []string{".env", "cmd/.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				telemetry.Warn("config.dotenv_failed", map[string]any{"path": path, "error": err})
			}
		}
	}

	apiKey := getEnv("LLM_API_KEY", os.Getenv("OPENROUTER_API_KEY"))

	return Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:         normalizeProvider(getEnv("LLM_PROVIDER", "openrouter")),
		LLMModel:            getEnv("LLM_MODEL", "deepseek/deepseek-r1-0528-qwen3-8b"),
		LLMAPIKey:           apiKey,
		LLMBaseURL:          getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:          time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		AppURL:              getEnv("APP_URL", "http://localhost:3000"),
		VapiAPIKey:          getEnv("VAPI_API_KEY", ""),
		VapiBaseURL:         getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
		VapiSecret:          getEnv("VAPI_WEBHOOK_SECRET", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		QuestionDuration:    time.Duration(getEnvInt("INTERVIEW_QUESTION_SECONDS", 120)) * time.Second,
		InterviewStaleAfter: getEnvDuration("INTERVIEW_STALE_AFTER", 30*time.Minute),
		ReconcileSchedule:   getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		SubmissionDedupeTTL: getEnvDuration("SUBMISSION_DEDUPE_TTL", 10*time.Minute),
	}
}

// IsDevLike reports whether in-memory fallbacks are allowed.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// Validate applies the startup checks. Store and LLM settings are fatal outside dev.
// The voice key is optional, but outside dev it needs a webhook secret.
func (c Config) Validate() error {
	var errs []error
	if !c.IsDevLike() {
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
		if strings.TrimSpace(c.JWTSecret) == "" {
			errs = append(errs, errors.New("JWT_SECRET is required"))
		}
		if strings.TrimSpace(c.VapiAPIKey) != "" && strings.TrimSpace(c.VapiSecret) == "" {
			errs = append(errs, errors.New("VAPI_WEBHOOK_SECRET is required when VAPI_API_KEY is set"))
		}
		switch c.LLMProvider {
		case "gemini":
			if strings.TrimSpace(c.GeminiAPIKey) == "" {
				errs = append(errs, errors.New("GEMINI_API_KEY is required"))
			}
		default:
			if strings.TrimSpace(c.LLMAPIKey) == "" {
				errs = append(errs, errors.New("LLM_API_KEY is required"))
			}
		}
	}
	if c.DatabaseURL != "" && !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		errs = append(errs, fmt.Errorf("DATABASE_URL must be a postgres URL"))
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		errs = append(errs, errors.New("OBJECT_STORE=s3 requires S3_BUCKET"))
	}
	if c.QuestionDuration <= 0 {
		errs = append(errs, errors.New("INTERVIEW_QUESTION_SECONDS must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	default:
		return "openrouter"
	}
}
