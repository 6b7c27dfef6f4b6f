package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goshortcode/cache"
	"goshortcode/cache/inmemory"
	"goshortcode/cache/redis"
	"goshortcode/config"
	"goshortcode/idgenerator"
	"goshortcode/logger"
	"goshortcode/metrics"
	"goshortcode/repository"
	"goshortcode/server"
	"goshortcode/shortener"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env, err := config.Process()
	if err != nil {
		log.Fatalf("failed to process env: %s", err)
	}

	zaplogger, err := logger.New(logger.Config{
		Development: env.LogDevelopment,
		Level:       env.LogLevel,
		File:        env.LogFile,
		MaxSize:     env.LogMaxSize,
		MaxAge:      env.LogMaxAge,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %s", err)
	}
	defer zaplogger.Sync()

	gcfg := gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if env.LogDevelopment {
		gcfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var db *repository.GormRepository
	switch env.DBDriver {
	case config.DriverSQLite:
		db, err = repository.NewSQLiteRepo(env.SQLitePath, gcfg)
	default:
		db, err = repository.NewPGRepo(repository.PGConfig{
			Host:         env.DBHost,
			Port:         env.DBPort,
			User:         env.DBUser,
			DBName:       env.DBName,
			Password:     env.DBPassword,
			SSLMode:      env.DBSSLMode,
			TimeZone:     env.DBTimeZone,
			MaxOpenConns: env.DBMaxOpenConns,
		}, gcfg)
	}
	if err != nil {
		zaplogger.Fatal("failed to connect db", zap.String("driver", env.DBDriver), zap.Error(err))
	}

	m := metrics.New()

	cacheCfg := cache.Config{
		HitExp:       env.CacheHitTTL,
		MissExp:      env.CacheMissTTL,
		QueryTimeout: env.RequestTimeout,
	}
	var repo repository.Repository = db
	var redisCache *redis.Cache
	switch env.CacheEngine {
	case config.CacheRedis:
		redisCache = redis.New(env.CacheHost, env.CachePort)
		if err := redisCache.Ping(context.Background()); err != nil {
			zaplogger.Fatal("failed to connect redis", zap.Error(err))
		}
		repo = cache.New(db, redisCache, zaplogger, m, cacheCfg)
	case config.CacheInMemory:
		engine := inmemory.New(env.CacheHitTTL, 10*time.Minute)
		repo = cache.New(db, engine, zaplogger, m, cacheCfg)
	}

	store := shortener.New(repo, idgenerator.New(nil), zaplogger, m, shortener.Config{
		CodeLength:  env.CodeLength,
		MaxAttempts: env.MaxAttempts,
	})

	r := server.NewRouter(store, repo, m, zaplogger, server.Config{
		RedirectOrigin: env.RedirectOrigin,
		RequestTimeout: env.RequestTimeout,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", env.AppPort),
		Handler: r,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		zaplogger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("db", env.DBDriver),
			zap.String("cache", env.CacheEngine))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			zaplogger.Error("server error", zap.Error(err))
		}
	case sig := <-shutdown:
		zaplogger.Info("shutdown signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			zaplogger.Error("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			zaplogger.Error("failed to close redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		zaplogger.Error("failed to close database", zap.Error(err))
	}
	zaplogger.Info("server stopped")
}
