package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/recsys-storefront/internal/api"
	"github.com/baechuer/recsys-storefront/internal/config"
	"github.com/baechuer/recsys-storefront/internal/downstream"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/baechuer/recsys-storefront/internal/session"
	"github.com/baechuer/recsys-storefront/internal/tracing"
)

func main() {
	cfg := config.Load()

	logger.Init()

	tp, err := tracing.InitTracing(context.Background(), tracing.Config{
		ServiceName:    tracing.ServiceName,
		ServiceVersion: "0.1.0",
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("tracing init failed")
	}

	// redis is optional: without it there is no product cache and rate limiting is in-process
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = downstream.NewRedis(cfg.RedisURL)
		if err != nil {
			zlog.Warn().Err(err).Msg("redis unavailable, continuing without cache")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	store := session.NewFileStore(cfg.TokenFile)

	router, cleanup, err := api.Build(cfg, store, rdb)
	if err != nil {
		zlog.Fatal().Err(err).Msg("router setup failed")
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info().
			Str("port", cfg.Port).
			Str("backend", cfg.BackendURL).
			Str("token_file", store.Path()).
			Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("shutdown error")
	}
	if err := tp.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("tracer shutdown error")
	}
}
