// Command miniauth-server exposes the engine over HTTP.
//
// Endpoints:
//
//	POST /api/auth/login    Authorization: Bearer <initData>
//	POST /api/auth/refresh  Authorization: Bearer <initData>, body {"refresh_token":"..."}
//	POST /api/auth/logout   Authorization: Bearer <access token>
//	GET  /api/auth/session  Authorization: Bearer <access token>
//	POST /api/auth/session  X-Signature: base64(HMAC-SHA256(INTERNAL_SECRET_KEY, body))
//	GET  /metrics           Prometheus text format
//
// Configuration is read from the environment (and ./.env when present). See
// loadConfig for the variable names and defaults.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if cfg.DBAutoMigrate {
		if err := goMiniAuth.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr(),
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDatabase,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	builder := goMiniAuth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithDB(db).
		WithLogger(logger)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(goMiniAuth.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.listenAddr(),
		Handler:           newRouter(engine, logger, []byte(cfg.InternalSecretKey)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDB(cfg *serverConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.DBDriver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBPath), gormCfg)
	default:
		return gorm.Open(postgres.Open(cfg.postgresDSN()), gormCfg)
	}
}
