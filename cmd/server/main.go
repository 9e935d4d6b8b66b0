package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetly/config"
	"meetly/internal/database"
	"meetly/internal/logger"
	"meetly/internal/ratelimit"
	"meetly/internal/repository"
	"meetly/internal/repository/memstore"
	"meetly/internal/router"
	"meetly/internal/service"
	"meetly/internal/ws"
	"meetly/pkg/cloudinary"
	"meetly/pkg/sms"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := logger.Initialize(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db := openStore(ctx, cfg)
	limiter := ratelimit.New(limiterStore(ctx, cfg, db))

	cloud, err := cloudinary.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
	if err != nil {
		log.Fatal("cloudinary", zap.Error(err))
	}
	if cloud == nil {
		log.Info("evidence uploads disabled: set CLOUDINARY_CLOUD_NAME to enable")
	}
	fcm := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath)

	engine, reconciler := router.Setup(cfg, router.Deps{
		Store:   store,
		Limiter: limiter,
		Hub:     ws.NewHub(),
		FCM:     fcm,
		Cloud:   cloud,
		SMS:     sms.NewLogSender(log),
	})
	go reconciler.Run(ctx)
	limiter.StartSweeper(ctx, cfg.RateLimit.SweepInterval, cfg.RateLimit.IdleTTL)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// openStore returns the gorm-backed store, or the in-process store for
// driver "memory". db is nil in the latter case.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *gorm.DB) {
	if cfg.Database.Driver == "memory" {
		logger.Log.Warn("using in-memory store; data is lost on restart")
		store := memstore.New()
		seedSettings(ctx, store)
		return store, nil
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Log.Fatal("migrate", zap.Error(err))
	}
	store := repository.NewStore(db)
	seedSettings(ctx, store)
	return store, db
}

func seedSettings(ctx context.Context, store repository.Store) {
	if err := store.Settings().SeedDefaults(ctx, service.DefaultSettings()); err != nil {
		logger.Log.Fatal("seed settings", zap.Error(err))
	}
}

// limiterStore picks the primary rate limit store. A nil store runs the
// limiter in degraded in-memory mode.
func limiterStore(ctx context.Context, cfg *config.Config, db *gorm.DB) ratelimit.Store {
	switch cfg.RateLimit.Store {
	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Log.Error("invalid REDIS_URL, rate limiter degraded", zap.Error(err))
			return nil
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			// Keep the client; the limiter recovers once redis answers.
			logger.Log.Warn("redis unreachable at startup", zap.Error(err))
		}
		return ratelimit.NewRedisStore(client, cfg.RateLimit.IdleTTL)
	case "database":
		if db == nil {
			logger.Log.Warn("database rate limit store needs a SQL driver, rate limiter degraded")
			return nil
		}
		return ratelimit.NewSQLStore(db)
	default:
		return nil
	}
}
