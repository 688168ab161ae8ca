// Package main provides the notam-api server.
//
// The server decodes NOTAM bulletins posted to it and, when a store is
// configured, serves stored records by notice id and validity. With NATS_URL
// set it also consumes bulletins from NATS and publishes decoded batches.
//
// Configuration is read from the environment (and an optional .env file):
//
//	HTTP_ADDR            listen address (default :8080)
//	LOG_LEVEL, LOG_FORMAT, LOG_FILE
//	WORKERS              parallel notice workers (default GOMAXPROCS)
//	AUTH_ENABLED, API_KEYS
//	CACHE_BACKEND        memory, redis or none (default memory)
//	CACHE_SIZE, CACHE_TTL, REDIS_ADDR
//	POSTGRES_HOST ...    current records in PostgreSQL
//	CLICKHOUSE_HOST ...  decode history in ClickHouse (needs PostgreSQL)
//	SQLITE_PATH          local store when PostgreSQL is not configured
//	NATS_URL, NATS_SUBJECT, NATS_RECORDS_SUBJECT, NATS_STREAM
//
// API Endpoints:
//
//	GET  /api/v1/health
//	POST /api/v1/decode            body: bulletin text or {"text": "..."}; ?summary=true&render=true
//	POST /api/v1/decode/geojson    ?simplify=<degrees>
//	GET  /api/v1/notams            ?active_at=<RFC3339>&limit=<n>
//	GET  /api/v1/notams/{id}
//	GET  /metrics
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notam_parser/internal/api"
	"notam_parser/internal/cache"
	"notam_parser/internal/config"
	"notam_parser/internal/extractor"
	"notam_parser/internal/natsio"
	"notam_parser/internal/observability"
	"notam_parser/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decodeCache, err := openCache(ctx, cfg)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	if decodeCache != nil {
		defer func() { _ = decodeCache.Close() }()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	dec := extractor.New(extractor.Options{Workers: cfg.Workers, Logger: logger})
	decoder := cache.NewDecoder(dec, decodeCache, metrics, logger)

	server := api.NewServer(decoder, store, api.Config{
		AuthEnabled: cfg.AuthEnabled,
		APIKeys:     cfg.APIKeys,
		Metrics:     promhttp.Handler(),
		Logger:      logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP server.
	go func() {
		logger.Info("notam-api listening", "addr", cfg.HTTPAddr, "auth", cfg.AuthEnabled, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start NATS worker.
	var nc *natsio.Client
	if cfg.NATSURL != "" {
		nc, err = natsio.Connect(cfg.NATSURL, cfg.NATSStream, cfg.NATSRecordsSubject)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		worker := natsio.NewWorker(nc, natsio.Options{
			Subject:        cfg.NATSSubject,
			RecordsSubject: cfg.NATSRecordsSubject,
			Queue:          "notam-api",
			Decoder:        decoder,
			Store:          store,
			Metrics:        metrics,
			Logger:         logger,
		})
		go func() {
			if err := nc.Run(ctx, worker); err != nil {
				logger.Error("nats worker error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if nc != nil {
		nc.Close()
	}

	logger.Info("shutdown complete")
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL)
	case config.CacheMemory:
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL), nil
	default:
		return nil, nil
	}
}

// openStore picks PostgreSQL (with ClickHouse history when configured), then
// SQLite, then no store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.RecordStore, error) {
	switch {
	case cfg.Postgres != nil && cfg.ClickHouse != nil:
		db, err := storage.Open(ctx, storage.Config{Postgres: *cfg.Postgres, ClickHouse: *cfg.ClickHouse})
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchemas(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("store: postgres with clickhouse history", "postgres", cfg.Postgres.Host, "clickhouse", cfg.ClickHouse.Host)
		return db, nil

	case cfg.Postgres != nil:
		pg, err := storage.OpenPostgres(ctx, *cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.CreateSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		logger.Info("store: postgres", "host", cfg.Postgres.Host)
		return pg, nil

	case cfg.SQLitePath != "":
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("store: sqlite", "path", cfg.SQLitePath)
		return db, nil
	}

	if cfg.ClickHouse != nil {
		logger.Warn("CLICKHOUSE_HOST ignored without POSTGRES_HOST")
	}
	logger.Info("no store configured; lookup endpoints disabled")
	return nil, nil
}
