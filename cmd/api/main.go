package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sector-iot/sector-platform/internal/app/migrate"
	httpx "github.com/sector-iot/sector-platform/internal/http"
	"github.com/sector-iot/sector-platform/internal/mqtt"
	"github.com/sector-iot/sector-platform/internal/repository/postgres"
	"github.com/sector-iot/sector-platform/internal/service/auth"
	"github.com/sector-iot/sector-platform/internal/service/device"
	"github.com/sector-iot/sector-platform/internal/service/firmware"
	"github.com/sector-iot/sector-platform/internal/service/group"
	"github.com/sector-iot/sector-platform/internal/service/repo"
	"github.com/sector-iot/sector-platform/internal/ws"
	"github.com/sector-iot/sector-platform/pkg/config"
	"github.com/sector-iot/sector-platform/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	store := postgres.New(pool)
	eventHub := ws.NewHub(cfg.EventStreamBuffer)

	// The API stays up without a broker; firmware events are then
	// delivered over websockets only.
	var publisher firmware.Publisher
	mqttClient, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Warn("mqtt broker unavailable, firmware events disabled", "broker", cfg.MQTTBrokerURL, "error", err)
	} else {
		defer mqttClient.Close()
		publisher = mqttClient
	}

	authSvc := auth.New(store, log, cfg)
	deviceSvc := device.New(store, store, store, log)
	groupSvc := group.New(store, store, store, log)
	repoSvc := repo.New(store, log)
	firmwareSvc := firmware.New(store, store, store, store, publisher, eventHub, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, deviceSvc, groupSvc, repoSvc, firmwareSvc, eventHub, limiter, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
