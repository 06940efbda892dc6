package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/documents"
	"docqa-backend/internal/extract"
	"docqa-backend/internal/llm"
	openai "docqa-backend/internal/llm/openai"
	"docqa-backend/internal/ocr"
	ocrcli "docqa-backend/internal/ocr/cli"
	"docqa-backend/internal/ocr/tesseract"
	"docqa-backend/internal/services/health"
	"docqa-backend/internal/shared/auth"
	"docqa-backend/internal/shared/config"
	"docqa-backend/internal/shared/server"
	"docqa-backend/internal/shared/server/middleware"
	"docqa-backend/internal/shared/storage/db"
	"docqa-backend/internal/shared/storage/object"
	localstore "docqa-backend/internal/shared/storage/object/local"
	miniostore "docqa-backend/internal/shared/storage/object/minio"
	s3store "docqa-backend/internal/shared/storage/object/s3"
)

const (
	recordStorePostgres = "postgres"
	recordStoreMemory   = "memory"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	Extractor        extract.Extractor
	LLM              llm.Client
	Tokens           *auth.Tokens
	Limiter          middleware.Limiter
	Health           *health.Service
	RecordStore      string

	redis *middleware.RedisLimiter
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := BuildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Extractor: BuildExtractor(cfg, store),
		LLM:       llmClient,
		Tokens:    tokens,
	}

	if sqlDB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: sqlDB}
		app.RecordStore = recordStorePostgres
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.RecordStore = recordStoreMemory
	}

	app.Limiter, app.redis = buildLimiter(ctx, cfg)

	app.DocumentsService = &documents.Service{
		Repo:      app.DocumentsRepo,
		Store:     app.Store,
		Extractor: app.Extractor,
		LLM:       app.LLM,
	}
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, cfg.MaxUploadBytes, cfg.AllowedMimeTypes)
	if app.DocumentsHandler == nil {
		return nil, errors.New("failed to initialize handlers")
	}

	app.Health = health.NewService(cfg.Env, app.RecordStore, cfg.ObjectStoreType)
	if sqlDB != nil {
		app.Health.Register("database", sqlDB.PingContext)
	}
	if app.redis != nil {
		app.Health.Register("redis", app.redis.Ping)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: app.DocumentsHandler,
		Verifier:        tokens,
		Limiter:         app.Limiter,
		Health:          app.Health,
	})

	return app, nil
}

// Close releases the database and rate limiter connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

// BuildStore selects the blob store named by OBJECT_STORE.
func BuildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// BuildEngine selects the OCR engine named by OCR_ENGINE.
func BuildEngine(cfg config.Config) ocr.Engine {
	if cfg.OCREngine == "cli" {
		return ocrcli.New(ocrcli.Config{
			Tesseract:   cfg.TesseractPath,
			TessdataDir: cfg.TessdataDir,
			Languages:   cfg.OCRLanguages,
		})
	}
	return tesseract.New(cfg.OCRLanguages, cfg.TessdataDir)
}

// BuildExtractor wires the OCR engine to the blob store.
func BuildExtractor(cfg config.Config, store object.ObjectStore) *extract.OCRExtractor {
	return extract.NewOCRExtractor(store, BuildEngine(cfg), cfg.OCRLanguages)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; queries will fail until a provider is configured")
			return llm.PlaceholderClient{}, nil
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
	case "", "none", "placeholder":
		return llm.PlaceholderClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func buildLimiter(ctx context.Context, cfg config.Config) (middleware.Limiter, *middleware.RedisLimiter) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return middleware.NewRateLimiter(nil), nil
	}
	limiter, err := middleware.NewRedisLimiter(cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: invalid REDIS_URL; using in-process rate limiter: %v", err)
		return middleware.NewRateLimiter(nil), nil
	}
	if err := limiter.Ping(ctx); err != nil {
		log.Printf("bootstrap: redis unreachable; using in-process rate limiter: %v", err)
		_ = limiter.Close()
		return middleware.NewRateLimiter(nil), nil
	}
	return limiter, limiter
}
