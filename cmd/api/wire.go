package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/application/roundtable"
	"github.com/bryanwahyu/roundtable/internal/config"
	"github.com/bryanwahyu/roundtable/internal/infra/ai/openai"
	"github.com/bryanwahyu/roundtable/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/roundtable/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/roundtable/internal/infra/db/postgres"
	"github.com/bryanwahyu/roundtable/internal/infra/executor"
	dockerrunner "github.com/bryanwahyu/roundtable/internal/infra/executor/docker"
	"github.com/bryanwahyu/roundtable/internal/infra/extract"
	"github.com/bryanwahyu/roundtable/internal/infra/sessionstore"
	minioStore "github.com/bryanwahyu/roundtable/internal/infra/storage"
	"github.com/bryanwahyu/roundtable/internal/logging"
	"github.com/bryanwahyu/roundtable/internal/middleware"
)

// app holds everything built from config; close releases it in reverse order.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *roundtable.Service
	checkers map[string]middleware.HealthChecker
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load error: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger init error: %w", err)
	}
	return cfg, logger, nil
}

// build wires the service. With ephemeral set, sessions stay in memory and
// no database or archive is touched (one-shot CLI use).
func build(ctx context.Context, ephemeral bool) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, checkers: map[string]middleware.HealthChecker{}}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	// LLM gateway
	gateway := openai.NewClient(openai.Options{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
	llm := appai.NewService(gateway, logger.Named("llm"))

	// sandbox
	runner := dockerrunner.NewRunner(dockerrunner.Options{
		Image:       cfg.Sandbox.Image,
		Timeout:     cfg.Sandbox.Timeout,
		Memory:      cfg.Sandbox.Memory,
		Network:     cfg.Sandbox.Network,
		Concurrency: cfg.Sandbox.Concurrency,
	}, logger.Named("sandbox"))
	dispatcher := executor.NewDispatcher(runner, logger.Named("dispatcher"))
	a.closers = append(a.closers, dispatcher.Close)
	a.checkers["sandbox"] = middleware.CheckFunc(runner.Ping)

	deps := roundtable.Deps{Extractors: extract.All()}

	// session store
	if cfg.Redis.Addr != "" && !ephemeral {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		store := sessionstore.NewRedis(client, cfg.Redis.Prefix, cfg.Redis.TTL)
		if err := store.Ping(ctx); err != nil {
			return fail(fmt.Errorf("redis connect error: %w", err))
		}
		deps.Sessions = store
		a.checkers["redis"] = middleware.CheckFunc(store.Ping)
	} else {
		deps.Sessions = sessionstore.NewMemory()
	}

	// transcript / audit
	if cfg.Database.Driver != "" && !ephemeral {
		db, err := openDatabase(ctx, cfg, &deps)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, db.Close)
		a.checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// raw document archive
	if cfg.Minio.Endpoint != "" && !ephemeral {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return fail(fmt.Errorf("minio init error: %w", err))
		}
		deps.Archive = store
		a.checkers["minio"] = middleware.CheckFunc(store.Ping)
	}

	clock := roundtable.SystemClock{}
	orch := roundtable.NewOrchestrator(llm, prompt.Default{}, dispatcher, clock, roundtable.Options{
		QuestionsPerExpert: cfg.Panel.QuestionsPerExpert,
		Concurrent:         cfg.Panel.Concurrent,
		IsolateFailures:    cfg.IsolateFailures(),
	}, logger.Named("orchestrator"))
	a.service = roundtable.NewService(orch, deps, clock, logger.Named("roundtable"))
	return a, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, deps *roundtable.Deps) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect error: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql migrate error: %w", err)
		}
		deps.Transcripts = mysqlp.NewTranscriptRepository(db)
		deps.Runs = mysqlp.NewAnalysisRepository(db)
		deps.TurnErrors = mysqlp.NewTurnErrorRepository(db)
		return db, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect error: %w", err)
		}
		if err := pgp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate error: %w", err)
		}
		deps.Transcripts = pgp.NewTranscriptRepository(db)
		deps.Runs = pgp.NewAnalysisRepository(db)
		deps.TurnErrors = pgp.NewTurnErrorRepository(db)
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
