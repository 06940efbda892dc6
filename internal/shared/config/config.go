package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
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
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool

	OCREngine     string
	OCRLanguages  []string
	TesseractPath string
	TessdataDir   string

	LLMProvider   string
	LLMModel      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	MaxUploadBytes   int64
	AllowedMimeTypes []string

	JWTSecret string

	RedisURL                 string
	RateLimitQueryPerMinute  int
	RateLimitUploadPerMinute int

	ShutdownTimeout time.Duration
}

// DefaultAllowedMimeTypes are the image formats accepted for upload.
var DefaultAllowedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. Existing env vars win.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	allowed := splitAndTrim(getEnv("ALLOWED_MIME_TYPES", ""))
	if len(allowed) == 0 {
		allowed = append([]string(nil), DefaultAllowedMimeTypes...)
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./uploads"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MinIOEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:     getEnv("MINIO_BUCKET", "documents"),
		MinIOUseSSL:     getEnvBool("MINIO_USE_SSL", false),

		OCREngine:     normalizeOCREngine(getEnv("OCR_ENGINE", "tesseract")),
		OCRLanguages:  splitAndTrim(getEnv("OCR_LANGUAGES", "eng")),
		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
		TessdataDir:   getEnv("TESSDATA_DIR", ""),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAITimeout: time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,

		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		AllowedMimeTypes: allowed,

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL:                 getEnv("REDIS_URL", ""),
		RateLimitQueryPerMinute:  getEnvInt("RATE_LIMIT_QUERY_PER_MINUTE", 20),
		RateLimitUploadPerMinute: getEnvInt("RATE_LIMIT_UPLOAD_PER_MINUTE", 10),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// IsDevLike reports whether env is a local development environment.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
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
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
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
	if err != nil {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
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
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeOCREngine(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cli", "exec":
		return "cli"
	default:
		return "tesseract"
	}
}
