package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/techsim/internal/auth"
	"github.com/freeeve/techsim/internal/config"
	"github.com/freeeve/techsim/internal/handler"
	"github.com/freeeve/techsim/internal/logger"
	"github.com/freeeve/techsim/internal/repository"
	"github.com/freeeve/techsim/internal/repository/postgres"
	redisrepo "github.com/freeeve/techsim/internal/repository/redis"
	"github.com/freeeve/techsim/internal/repository/sqlite"
	"github.com/freeeve/techsim/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Str("sqlitePath", cfg.SQLitePath).
		Bool("redis", cfg.RedisEnabled()).Msg("Config loaded")

	// Storage
	var (
		runRepo   repository.RunRepository
		cycleRepo repository.CycleRepository
	)
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("SQLite open failed")
		}
		defer store.Close()
		runRepo, cycleRepo = store, store
	} else {
		db, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		runRepo, cycleRepo = postgres.NewRunRepo(db), postgres.NewCycleRepo(db)
	}

	// Redis
	var (
		cache repository.RunCache
		rdb   *goredis.Client
	)
	if cfg.RedisEnabled() {
		redisClient, err := redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		cache, rdb = redisClient, redisClient.Underlying()

		// Enable Redis keyspace notifications for timer expiry events.
		if err := rdb.ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (auto-advance falls back to polling)")
		}
	} else {
		log.Warn().Msg("Redis disabled: no status cache, cross-process lock or timers")
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.AdminKey)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	simSvc := service.NewSimulationService(runRepo, cycleRepo, cache, wsHub)

	// Timer listener (auto-advance on expiry)
	timerListener := service.NewTimerListener(rdb, simSvc, runRepo, cfg.AutoAdvancePoll)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(simSvc, wsHub, jwtMgr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Recover active runs (replay engine state and rehydrate Redis after restart)
	if err := simSvc.RecoverActiveRuns(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active runs (non-fatal)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timerListener.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
