package main

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

	"github.com/joho/godotenv"

	"github.com/tabletalk/tabletalk/internal/answer"
	"github.com/tabletalk/tabletalk/internal/api"
	"github.com/tabletalk/tabletalk/internal/auth"
	catalogpostgres "github.com/tabletalk/tabletalk/internal/catalog/postgres"
	"github.com/tabletalk/tabletalk/internal/completion"
	"github.com/tabletalk/tabletalk/internal/config"
	"github.com/tabletalk/tabletalk/internal/engine"
	engineduckdb "github.com/tabletalk/tabletalk/internal/engine/duckdb"
	"github.com/tabletalk/tabletalk/internal/generate"
	"github.com/tabletalk/tabletalk/internal/kb"
	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/schema"
	"github.com/tabletalk/tabletalk/internal/session"
	sessionpostgres "github.com/tabletalk/tabletalk/internal/session/postgres"
	sessionsqlite "github.com/tabletalk/tabletalk/internal/session/sqlite"
	s3store "github.com/tabletalk/tabletalk/internal/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("tabletalk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	catalogDB, err := catalogpostgres.Open(context.Background(), catalogpostgres.DBConfig{
		DSN:             cfg.Catalog.DSN,
		MaxOpenConns:    cfg.Catalog.MaxOpenConns,
		MaxIdleConns:    cfg.Catalog.MaxIdleConns,
		ConnMaxIdleTime: cfg.Catalog.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Catalog.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open catalog db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = catalogDB.Close() }()
	catalogRepo := catalogpostgres.NewRepository(catalogDB)

	objectStore, err := s3store.New(context.Background(), s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	jobService, err := engineduckdb.NewService(catalogRepo, objectStore, logger, engineduckdb.ServiceOptions{
		RowLimit:   cfg.Engine.RowLimit,
		RunTimeout: cfg.Engine.WaitTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize query job service", slog.Any("error", err))
		os.Exit(1)
	}
	runner, err := engine.NewRunner(jobService, logger, engine.RunnerOptions{
		Catalog:      cfg.Engine.Catalog,
		Database:     cfg.Engine.Database,
		Workgroup:    cfg.Engine.Workgroup,
		OutputPrefix: cfg.Engine.OutputPrefix,
		PollInterval: cfg.Engine.PollInterval,
		WaitTimeout:  cfg.Engine.WaitTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize query runner", slog.Any("error", err))
		os.Exit(1)
	}

	completionClient, err := completion.NewOpenAIClient(completion.OpenAIConfig{
		BaseURL:      cfg.AI.BaseURL,
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		BreadthLimit: cfg.AI.BreadthLimit,
		Timeout:      cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize completion client", slog.Any("error", err))
		os.Exit(1)
	}

	sessionStore, closeSessions, err := openSessionStore(cfg, catalogDB)
	if err != nil {
		logger.Error("failed to open session store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeSessions()

	schemaProvider := schema.NewCatalogProvider(catalogRepo)
	generator, err := generate.NewGenerator(completionClient, schemaProvider, runner, logger, generate.GeneratorOptions{
		Sampling:    completionClient.DefaultSampling(),
		MaxAttempts: cfg.AI.MaxAttempts,
	})
	if err != nil {
		logger.Error("failed to initialize sql generator", slog.Any("error", err))
		os.Exit(1)
	}
	answerService, err := answer.NewService(generator, runner, completionClient, sessionStore, logger, answer.ServiceOptions{
		Sampling:     completionClient.DefaultSampling(),
		HistoryLimit: cfg.Session.HistoryLimit,
	})
	if err != nil {
		logger.Error("failed to initialize answer service", slog.Any("error", err))
		os.Exit(1)
	}

	var kbClient kb.Client
	if cfg.KB.Enabled {
		kbClient, err = kb.NewHTTPClient(kb.HTTPConfig{
			Endpoint: cfg.KB.Endpoint,
			APIKey:   cfg.KB.APIKey,
			Timeout:  cfg.KB.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize knowledge base client", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := api.Dependencies{
		Logger:         logger,
		Answerer:       answerService,
		KBClient:       kbClient,
		SchemaProvider: schemaProvider,
		CatalogRepo:    catalogRepo,
		Readiness: api.CombineReadinessChecks(
			catalogRepo.HealthCheck,
			api.CheckObjectStoreConfig(cfg),
			api.CheckAIConfig(cfg),
		),
		DependencyTimout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openSessionStore(cfg config.Config, catalogDB *sql.DB) (session.Store, func(), error) {
	switch cfg.Session.Driver {
	case "sqlite":
		store, err := sessionsqlite.Open(context.Background(), cfg.Session.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		db := catalogDB
		closer := func() {}
		if cfg.Session.DSN != "" && cfg.Session.DSN != cfg.Catalog.DSN {
			opened, err := catalogpostgres.Open(context.Background(), catalogpostgres.DBConfig{DSN: cfg.Session.DSN})
			if err != nil {
				return nil, nil, err
			}
			db = opened
			closer = func() { _ = opened.Close() }
		}
		return sessionpostgres.NewStore(db), closer, nil
	}
}
