// README: API entrypoint: config, infra clients, service wiring, graceful shutdown.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waterline/internal/config"
	waterhttp "waterline/internal/http"
	"waterline/internal/infra"
	"waterline/internal/maps"
	"waterline/internal/modules/metrics"
	"waterline/internal/modules/order"
	"waterline/internal/modules/roles"
	"waterline/internal/modules/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Error("firebase init failed", "error", err)
		os.Exit(1)
	}
	defer fb.Close()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Error("postgres init failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := infra.NewRedis(cfg.Redis.Addr)
	defer rdb.Close()

	// Geocoding is optional enrichment; without a key orders simply carry no
	// coordinates.
	var geocoder order.Geocoder
	if cfg.Maps.APIKey != "" {
		gc, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			logger.Error("maps init failed", "error", err)
			os.Exit(1)
		}
		geocoder = gc
	} else {
		logger.Warn("no maps api key configured, geocoding disabled")
	}

	orderStore := order.NewStore(fb.Firestore)
	auditLog := order.NewAuditLog(db)
	orderSvc := order.NewService(orderStore, auditLog, geocoder)

	roleStore := roles.NewStore(fb.Firestore)
	roleSvc := roles.NewService(roleStore, roles.NewRedisCache(rdb, cfg.Roles.CacheTTL))

	settingsStore := settings.NewStore(fb.Firestore)
	settingsSvc := settings.NewService(settingsStore)

	metricsSvc := metrics.NewService(orderStore, settingsSvc, cfg.Location())

	server := waterhttp.NewServer(waterhttp.Deps{
		Verifier:  fb,
		Roles:     roleSvc,
		Directory: roleStore,
		Orders:    orderSvc,
		Watcher:   orderStore,
		Events:    auditLog,
		Metrics:   metricsSvc,
		Settings:  settingsSvc,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Routes(),
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
