package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string
	LogFormat       string
	JWTSecret       string

	JDCacheBackend string
	JDCacheTTL     time.Duration
	RedisAddr      string
	RedisPrefix    string

	JDAnalyzerURL      string
	CVTailorURL        string
	CollabAPIKey       string
	JDAnalysisTimeout  time.Duration
	TailoringTimeout   time.Duration
	RerunNeedsTailored bool

	AnalyzeRatePerMin float64
	AnalyzeBurst      int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		Env:             env,
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		JWTSecret:       getEnv("JWT_SECRET", ""),

		JDCacheBackend: normalizeCacheBackend(getEnv("JD_CACHE_BACKEND", "")),
		JDCacheTTL:     getDuration("JD_CACHE_TTL", 7*24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPrefix:    getEnv("REDIS_PREFIX", "jdcache"),

		JDAnalyzerURL:      getEnv("JD_ANALYZER_URL", ""),
		CVTailorURL:        getEnv("CV_TAILOR_URL", ""),
		CollabAPIKey:       getEnv("COLLAB_API_KEY", ""),
		JDAnalysisTimeout:  getDuration("JD_ANALYSIS_TIMEOUT", 60*time.Second),
		TailoringTimeout:   getDuration("TAILORING_TIMEOUT", 120*time.Second),
		RerunNeedsTailored: getBool("RERUN_REQUIRE_TAILORED", false),

		AnalyzeRatePerMin: getFloat("ANALYZE_RATE_PER_MIN", 10),
		AnalyzeBurst:      getInt("ANALYZE_BURST", 3),
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
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

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
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

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
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

// normalizeCacheBackend returns "" when unset so bootstrap can pick based on DATABASE_URL.
func normalizeCacheBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	case "postgres", "pg":
		return "postgres"
	case "memory", "mem":
		return "memory"
	default:
		return ""
	}
}
