package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/config"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/core"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/extract"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/hyper"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/logging"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/storage"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/web"
)

func main() {
	// Values already in the environment win over .env.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_backend", cfg.Storage.Backend,
		"input_container", cfg.Storage.InputContainer,
		"output_container", cfg.Storage.OutputContainer,
		"export_schemas", cfg.Extract.Schemas,
		"job_max_concurrent", cfg.Jobs.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	store, err := newStore(cfg.Storage)
	if err != nil {
		slog.Error("failed to configure object storage", "error", err)
		os.Exit(1)
	}

	cleaner, err := extract.NewNameCleaner(cfg.Extract.NameSuffixPattern)
	if err != nil {
		slog.Error("invalid table name pattern", "error", err)
		os.Exit(1)
	}

	engine := hyper.NewEngine(hyper.Config{
		BinaryPath:   cfg.Hyper.BinaryPath,
		Endpoint:     cfg.Hyper.Endpoint,
		User:         cfg.Hyper.User,
		LogDir:       cfg.Hyper.LogDir,
		StartTimeout: cfg.Hyper.StartTimeout,
		StopTimeout:  cfg.Hyper.StopTimeout,
	})
	reader := extract.NewReader(engine, extract.Options{
		ExportSchemas: cfg.Extract.Schemas,
		Cleaner:       cleaner,
		TableTimeout:  cfg.Extract.TableTimeout,
		Observer:      logging.NewEventLogger(nil),
	})

	limiter := core.NewJobLimiter(cfg.Jobs.MaxConcurrent, cfg.Jobs.MaxWaitTime)
	service, err := core.NewService(store, extract.NewPipeline(reader), core.Options{
		InputBucket:  cfg.Storage.InputContainer,
		OutputBucket: cfg.Storage.OutputContainer,
		WorkBase:     cfg.Extract.WorkDir,
		JobTimeout:   cfg.Jobs.Timeout,
		Limiter:      limiter,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}
	slog.Info("extraction service ready", "work_base", service.WorkBase())

	server := web.NewServer(service, web.Options{
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		RequestTimeout:    cfg.Server.RequestTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		TrustedProxies:    cfg.Security.TrustedProxies,
		AllowedOrigin:     cfg.Security.AllowedOrigin,
		RateLimit:         cfg.Rate.Enabled,
		RequestsPerMinute: cfg.Rate.RequestsPerMinute,
		ExtractPerMinute:  cfg.Rate.ExtractLimit,
	})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests first so no new job starts while draining.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for jobs to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("jobs did not complete in time", "error", err)
			} else {
				slog.Info("all jobs completed")
			}
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// newStore builds the object store for the configured backend. Credentials
// are checked here so a misconfigured process never serves requests.
func newStore(cfg config.StorageConfig) (storage.ObjectStore, error) {
	if cfg.Backend == config.BackendLocal {
		store, err := storage.NewLocalStore(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		slog.Info("using local object store", "root", store.Root())
		return store, nil
	}

	client, err := storage.NewS3Client(storage.Config{
		EndpointURL:     cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		Region:          cfg.Region,
		UseSSL:          cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		// Not fatal: each job reports its own storage errors.
		slog.Warn("object store not reachable", "endpoint", cfg.Endpoint, "error", err)
	} else {
		slog.Info("connected to object store", "endpoint", cfg.Endpoint)
	}
	return client, nil
}
