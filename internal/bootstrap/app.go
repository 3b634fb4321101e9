package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	googleauth "tagrec-backend/internal/auth"
	"tagrec-backend/internal/extract"
	"tagrec-backend/internal/llm"
	"tagrec-backend/internal/llm/gemini"
	"tagrec-backend/internal/recommend"
	"tagrec-backend/internal/sessions"
	"tagrec-backend/internal/shared/config"
	"tagrec-backend/internal/shared/server"
	"tagrec-backend/internal/shared/storage/db"
)

const cleanupInterval = time.Hour

// App holds shared dependencies. Tests can build the graph with
// overridden backends and serve requests through Router.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	SessionsRepo     sessions.Repo
	SessionsService  *sessions.Service
	RecommendService *recommend.Service
	SessionHandler   *sessions.Handler
	RecommendHandler *recommend.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Option overrides a dependency before the graph is assembled.
type Option func(*App)

// WithLLMClients replaces the recommendation backend chain, primary first.
func WithLLMClients(clients ...llm.Client) Option {
	return func(app *App) {
		app.RecommendService = &recommend.Service{
			Invoker: recommend.NewInvoker(clients, app.Config.LLMMaxAttempts),
		}
	}
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB}
	for _, opt := range opts {
		opt(app)
	}

	if app.SessionsRepo == nil {
		if sqlDB != nil {
			app.SessionsRepo = &sessions.PGRepo{DB: sqlDB}
		} else {
			app.SessionsRepo = sessions.NewMemoryRepo()
		}
	}
	app.SessionsService = &sessions.Service{Repo: app.SessionsRepo, TTL: cfg.SessionTTL}

	if app.RecommendService == nil {
		app.RecommendService = &recommend.Service{Invoker: buildInvoker(cfg)}
	}
	app.RecommendService.Extractor = extract.New()
	app.RecommendService.PromptBudget = cfg.PromptBudget

	app.SessionHandler = sessions.NewHandler(app.SessionsService)
	app.RecommendHandler = recommend.NewHandler(app.RecommendService, app.SessionsService)
	app.GoogleAuth = googleauth.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		SessionHandler:   app.SessionHandler,
		RecommendHandler: app.RecommendHandler,
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

// StartCleanup begins the background sweep of expired sessions. Callers
// cancel ctx to stop it.
func (app *App) StartCleanup(ctx context.Context) {
	app.SessionsService.StartCleanup(ctx, cleanupInterval)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory sessions")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory sessions: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory sessions: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

// buildInvoker assembles the backend chain: the configured model first,
// the fallback model after it when one is set. A missing API key leaves
// the chain empty; the service reports the backend unavailable on use
// rather than failing startup.
func buildInvoker(cfg config.Config) *recommend.Invoker {
	var clients []llm.Client
	primary, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
	if err != nil {
		log.Printf("bootstrap: gemini primary client unavailable: %v", err)
	} else {
		clients = append(clients, primary)
	}
	if cfg.GeminiFallback != "" && cfg.GeminiFallback != cfg.GeminiModel {
		fallback, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiFallback, cfg.GeminiTimeout)
		if err != nil {
			log.Printf("bootstrap: gemini fallback client unavailable: %v", err)
		} else {
			clients = append(clients, fallback)
		}
	}
	return recommend.NewInvoker(clients, cfg.LLMMaxAttempts)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
