package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/analyses"
	"recruitai-backend/internal/candidates"
	"recruitai-backend/internal/forms"
	"recruitai-backend/internal/interviews"
	"recruitai-backend/internal/llm"
	"recruitai-backend/internal/llm/gemini"
	"recruitai-backend/internal/llm/openrouter"
	"recruitai-backend/internal/notify"
	"recruitai-backend/internal/services/health"
	"recruitai-backend/internal/shared/auth"
	"recruitai-backend/internal/shared/config"
	"recruitai-backend/internal/shared/idempotency"
	"recruitai-backend/internal/shared/server"
	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/storage/db"
	"recruitai-backend/internal/shared/storage/object"
	localstore "recruitai-backend/internal/shared/storage/object/local"
	s3store "recruitai-backend/internal/shared/storage/object/s3"
	"recruitai-backend/internal/shared/telemetry"
	"recruitai-backend/internal/users"
	"recruitai-backend/internal/voice"
)

// App holds shared dependencies and the router built from them.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Guard  idempotency.Guard
	LLM    llm.Completer
	Keys   *auth.Keys

	AnalysesService   *analyses.Service
	InterviewsService *interviews.Service
	VoiceService      *voice.Service
	FormsService      *forms.Service
	CandidatesService *candidates.Service
	UsersService      *users.Service
	Reconciler        *interviews.Reconciler

	closers []func() error
}

// Build validates configuration and prepares every dependency. Outside dev-like
// environments a missing store or model key is fatal.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Guard, err = app.buildGuard(ctx); err != nil {
		return nil, err
	}
	if app.LLM, err = buildCompleter(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Keys, err = auth.NewKeys(cfg.JWTSecret, cfg.IsDevLike()); err != nil {
		return nil, err
	}

	deps, err := app.buildServices()
	if err != nil {
		return nil, err
	}
	app.Router = server.NewRouter(deps)
	return app, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, nil
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildGuard(ctx context.Context) (idempotency.Guard, error) {
	if strings.TrimSpace(a.Config.RedisURL) == "" {
		return idempotency.NewMemoryGuard(), nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	guard, err := idempotency.NewRedisGuard(pingCtx, a.Config.RedisURL)
	if err != nil {
		if a.Config.IsDevLike() {
			telemetry.Warn("bootstrap.memory_dedupe", map[string]any{"error": err})
			return idempotency.NewMemoryGuard(), nil
		}
		return nil, err
	}
	a.closers = append(a.closers, guard.Close)
	return guard, nil
}

func buildCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": "gemini"})
			return llm.DisabledCompleter{Provider: "gemini"}, nil
		}
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, nil)
	default:
		if strings.TrimSpace(cfg.LLMAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": "openrouter"})
			return llm.DisabledCompleter{Provider: "openrouter"}, nil
		}
		return openrouter.NewClient(openrouter.Options{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			AppURL:  cfg.AppURL,
			Timeout: cfg.LLMTimeout,
		})
	}
}

// buildVoiceCaller returns nil when no key is configured so the voice service reports disabled.
func buildVoiceCaller(cfg config.Config) (voice.Caller, error) {
	client, err := voice.NewClient(voice.Options{APIKey: cfg.VapiAPIKey, BaseURL: cfg.VapiBaseURL})
	if errors.Is(err, voice.ErrDisabled) {
		telemetry.Info("bootstrap.voice_disabled", nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *App) buildServices() (server.RouterDeps, error) {
	var (
		analysisRepo  analyses.Repo
		interviewRepo interviews.Repo
		formRepo      forms.Repo
		candidateRepo candidates.Repo
		userRepo      users.Repo
	)
	if a.DB != nil {
		analysisRepo = &analyses.PGRepo{DB: a.DB}
		interviewRepo = &interviews.PGRepo{DB: a.DB}
		formRepo = &forms.PGRepo{DB: a.DB}
		candidateRepo = &candidates.PGRepo{DB: a.DB}
		userRepo = &users.PGRepo{DB: a.DB}
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		interviewRepo = interviews.NewMemoryRepo()
		formRepo = forms.NewMemoryRepo()
		candidateRepo = candidates.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}
	mailer := notify.NewLogMailer()

	analysisSvc := &analyses.Service{
		Repo:  analysisRepo,
		Store: a.Store,
		LLM:   a.LLM,
		Model: a.Config.LLMModel,
	}
	interviewSvc := &interviews.Service{
		Repo:             interviewRepo,
		Evaluator:        interviews.LLMEvaluator{LLM: a.LLM, Model: a.Config.LLMModel},
		Mailer:           mailer,
		Pool:             interviews.DefaultPool(),
		QuestionDuration: a.Config.QuestionDuration,
		AppURL:           a.Config.AppURL,
	}
	candidateSvc := &candidates.Service{Repo: candidateRepo}
	formSvc := &forms.Service{
		Repo:      formRepo,
		Store:     a.Store,
		Guard:     a.Guard,
		Mailer:    mailer,
		Pipeline:  candidateSvc,
		Parser:    analysisSvc,
		DedupeTTL: a.Config.SubmissionDedupeTTL,
	}
	caller, err := buildVoiceCaller(a.Config)
	if err != nil {
		return server.RouterDeps{}, err
	}
	voiceSvc := voice.NewService(caller, interviewSvc)
	userSvc := users.NewService(userRepo)

	a.AnalysesService = analysisSvc
	a.InterviewsService = interviewSvc
	a.VoiceService = voiceSvc
	a.FormsService = formSvc
	a.CandidatesService = candidateSvc
	a.UsersService = userSvc
	a.Reconciler = interviews.NewReconciler(interviewSvc, a.Config.ReconcileSchedule, a.Config.InterviewStaleAfter)

	var pinger health.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	return server.RouterDeps{
		Config:     a.Config,
		Verifier:   a.Keys,
		Health:     health.NewService(pinger),
		Limiter:    middleware.NewRateLimiter(nil),
		Analyses:   analyses.NewHandler(analysisSvc),
		Interviews: interviews.NewHandler(interviewSvc, a.Config.CORSAllowOrigin),
		Voice:      voice.NewHandler(voiceSvc, a.Config.VapiSecret, a.Config.IsDevLike()),
		Forms:      forms.NewHandler(formSvc),
		Candidates: candidates.NewHandler(candidateSvc),
		Users:      users.NewHandler(userSvc),
	}, nil
}
