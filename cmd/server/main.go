package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/steavenspr/auth-api-prototype/internal/config"
	"github.com/steavenspr/auth-api-prototype/internal/database"
	"github.com/steavenspr/auth-api-prototype/internal/handler"
	"github.com/steavenspr/auth-api-prototype/internal/logging"
	"github.com/steavenspr/auth-api-prototype/internal/middleware"
	"github.com/steavenspr/auth-api-prototype/internal/queue"
	"github.com/steavenspr/auth-api-prototype/internal/repository"
	"github.com/steavenspr/auth-api-prototype/internal/router"
	"github.com/steavenspr/auth-api-prototype/internal/service"
	"github.com/steavenspr/auth-api-prototype/internal/utils"
	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	var rdb *redis.Client
	if cfg.RevocationBackend == config.RevocationAuto || cfg.RevocationBackend == config.RevocationRedis {
		rdb, err = config.NewRedisClient(ctx)
		if err != nil {
			if cfg.RevocationBackend == config.RevocationRedis {
				return err
			}
			logger.Warn("redis unavailable, using mysql revocation table", "error", err)
		} else {
			defer rdb.Close()
		}
	}

	revocations := revocationStore(ctx, cfg, db, rdb, logger)

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewAMQPPublisher(cfg.AMQPURL)
	}

	users := repository.NewUserRepo(db)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)
	validator := validation.NewCredentialValidator(cfg.PasswordSpecialChars)
	tokens := utils.NewTokenAuthority(cfg.JWTSecret, cfg.AccessTTL(), revocations)

	authSvc, err := service.NewAuthService(users, tokens, hasher, validator, events, logger)
	if err != nil {
		return err
	}
	userSvc, err := service.NewUserService(users, hasher, validator, events, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	// one cache instance: registration purges what the users routes cached
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, logger), authSvc, cache, logger)
	router.RegisterUsers(e, handler.NewUserHandler(userSvc, logger), authSvc, cache, logger)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "revocation", backendName(revocations))

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// revocationStore picks the backend named by cfg.  With the MySQL backend a
// background loop purges rows whose tokens have expired.
func revocationStore(ctx context.Context, cfg config.Config, db *sql.DB, rdb *redis.Client, logger *slog.Logger) utils.RevocationSet {
	switch {
	case cfg.RevocationBackend == config.RevocationMemory:
		logger.Warn("in-memory revocation set: revocations are not shared between processes")
		return repository.NewMemoryRevocationStore()
	case rdb != nil && cfg.RevocationBackend != config.RevocationMySQL:
		return repository.NewRedisRevocationStore(rdb, "revoked")
	}
	repo := repository.NewRevocationRepo(db)
	go purgeLoop(ctx, repo, cfg.RevocationPurgeEvery, logger)
	return repo
}

func purgeLoop(ctx context.Context, repo *repository.RevocationRepo, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge revoked tokens failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged revoked tokens", "count", n)
			}
		}
	}
}

func backendName(s utils.RevocationSet) string {
	switch s.(type) {
	case *repository.RedisRevocationStore:
		return config.RevocationRedis
	case *repository.RevocationRepo:
		return config.RevocationMySQL
	case *repository.MemoryRevocationStore:
		return config.RevocationMemory
	}
	return "unknown"
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
				logger.Error("request", attrs...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
