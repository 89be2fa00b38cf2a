package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cvtailor-backend/internal/analysis"
	"cvtailor-backend/internal/applied"
	"cvtailor-backend/internal/collab"
	"cvtailor-backend/internal/cvversions"
	"cvtailor-backend/internal/jdcache"
	"cvtailor-backend/internal/selection"
	"cvtailor-backend/internal/services/health"
	"cvtailor-backend/internal/shared/config"
	"cvtailor-backend/internal/shared/server"
	"cvtailor-backend/internal/shared/server/middleware"
	"cvtailor-backend/internal/shared/storage/db"
	"cvtailor-backend/internal/shared/storage/object"
	localstore "cvtailor-backend/internal/shared/storage/object/local"
	s3store "cvtailor-backend/internal/shared/storage/object/s3"
	"cvtailor-backend/internal/shared/telemetry"
)

const purgeInterval = time.Hour

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  redis.UniversalClient
	Store  object.ObjectStore

	CVService       *cvversions.Service
	JDCache         *jdcache.Cache
	AnalysisService *analysis.Service
	AppliedService  *applied.Service
	Health          *health.Service

	purger purger
}

type purger interface {
	PurgeExpired(ctx context.Context, ttl time.Duration, now time.Time) (int64, error)
}

// Build prepares dependencies and wires routes.
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

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Health: health.NewService(),
	}
	if sqlDB != nil {
		app.Health.Register("postgres", sqlDB.PingContext)
	}

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	analyzer, tailor, err := buildCollaborators(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	analysisSvc := analysis.NewService(app.CVService, app.JDCache, analyzer, tailor, selection.Policy{
		RequireTailoredOnRerun: cfg.RerunNeedsTailored,
	})
	analysisSvc.JDTimeout = cfg.JDAnalysisTimeout
	analysisSvc.TailorTimeout = cfg.TailoringTimeout
	app.AnalysisService = analysisSvc

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          app.Health,
		CVHandler:       cvversions.NewHandler(app.CVService),
		JDCacheHandler:  jdcache.NewHandler(app.JDCache),
		AnalysisHandler: analysis.NewHandler(analysisSvc),
		AppliedHandler:  applied.NewHandler(app.AppliedService),
		Limiter:         middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
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

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) error {
	var (
		cvRepo      cvversions.Repo
		appliedRepo applied.Repo
	)
	if app.DB != nil {
		cvRepo = &cvversions.PGRepo{DB: app.DB}
		appliedRepo = &applied.PGRepo{DB: app.DB}
	} else {
		cvRepo = cvversions.NewMemoryRepo()
		appliedRepo = applied.NewMemoryRepo()
	}

	backend, err := buildCacheBackend(app)
	if err != nil {
		return err
	}

	app.CVService = cvversions.NewService(cvRepo, app.Store)
	app.JDCache = jdcache.New(backend, app.Config.JDCacheTTL)
	app.AppliedService = applied.NewService(appliedRepo)
	return nil
}

// cacheBackendName resolves the JD cache backend, defaulting to Postgres
// when a database is available.
func cacheBackendName(cfg config.Config, haveDB bool) string {
	if cfg.JDCacheBackend != "" {
		return cfg.JDCacheBackend
	}
	if haveDB {
		return "postgres"
	}
	return "memory"
}

func buildCacheBackend(app *App) (jdcache.Backend, error) {
	switch name := cacheBackendName(app.Config, app.DB != nil); name {
	case "redis":
		if strings.TrimSpace(app.Config.RedisAddr) == "" {
			return nil, errors.New("JD_CACHE_BACKEND=redis requires REDIS_ADDR")
		}
		opts, err := redisOptions(app.Config.RedisAddr)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		app.Redis = client
		app.Health.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		return jdcache.NewRedisBackend(client, app.Config.RedisPrefix), nil
	case "postgres":
		if app.DB == nil {
			if app.Config.IsDevLike() {
				telemetry.Warn("bootstrap.jdcache_fallback", map[string]any{"requested": name, "using": "memory"})
				return jdcache.NewMemoryBackend(), nil
			}
			return nil, errors.New("JD_CACHE_BACKEND=postgres requires DATABASE_URL")
		}
		pg := &jdcache.PGBackend{DB: app.DB}
		app.purger = pg
		return pg, nil
	default:
		return jdcache.NewMemoryBackend(), nil
	}
}

// redisOptions accepts either host:port or a redis:// URL.
func redisOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_ADDR: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: addr}, nil
}

func buildCollaborators(cfg config.Config) (collab.JDAnalyzer, collab.Tailor, error) {
	var (
		analyzer collab.JDAnalyzer = collab.Unconfigured{}
		tailor   collab.Tailor     = collab.Unconfigured{}
	)

	jdClient, err := collab.NewHTTPClient(cfg.JDAnalyzerURL, cfg.CollabAPIKey, cfg.JDAnalysisTimeout)
	switch {
	case err == nil:
		analyzer = collab.WithRetry(collab.HTTPJDAnalyzer{HTTPClient: jdClient})
	case !errors.Is(err, collab.ErrNotConfigured):
		return nil, nil, err
	default:
		telemetry.Warn("bootstrap.collab_unconfigured", map[string]any{"collaborator": "jd_analyzer"})
	}

	tailorClient, err := collab.NewHTTPClient(cfg.CVTailorURL, cfg.CollabAPIKey, cfg.TailoringTimeout)
	switch {
	case err == nil:
		tailor = collab.WithTailorRetry(collab.HTTPTailor{HTTPClient: tailorClient})
	case !errors.Is(err, collab.ErrNotConfigured):
		return nil, nil, err
	default:
		telemetry.Warn("bootstrap.collab_unconfigured", map[string]any{"collaborator": "cv_tailor"})
	}

	return analyzer, tailor, nil
}

// RunJanitor purges expired Postgres JD cache rows until ctx ends. It is a
// no-op for the memory and Redis backends, which expire on their own.
func (a *App) RunJanitor(ctx context.Context) {
	if a.purger == nil {
		return
	}
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		a.purgeOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) purgeOnce(ctx context.Context) {
	n, err := a.purger.PurgeExpired(ctx, a.Config.JDCacheTTL, time.Now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			telemetry.Warn("jdcache.purge_failed", map[string]any{"error": err.Error()})
		}
		return
	}
	if n > 0 {
		telemetry.Info("jdcache.purged", map[string]any{"rows": n})
	}
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
