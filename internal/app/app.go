// Package app wires the KPI engine and its collaborators from configuration.
package app

import (
	"fmt"

	"github.com/andresuchdata/controltower/backend-go/internal/cache"
	"github.com/andresuchdata/controltower/backend-go/internal/config"
	"github.com/andresuchdata/controltower/backend-go/internal/metrics"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline/kpi"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/andresuchdata/controltower/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/controltower/backend-go/internal/scheduler"
	"github.com/andresuchdata/controltower/backend-go/internal/service"
	"github.com/andresuchdata/controltower/backend-go/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config       *config.Config
	DB           *postgres.DB
	Inputs       repository.InputRepository
	Service      *service.KPIService
	Orchestrator *pipeline.Orchestrator
	Metrics      *metrics.Recorder

	redis *redis.Client
}

// New connects to Postgres and, when enabled, Redis and the archive bucket.
// Redis or bucket failures downgrade to in-process and no-op implementations.
func New(cfg *config.Config) (*App, error) {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return Wire(cfg, db)
}

// Wire builds the application on an existing pool.
func Wire(cfg *config.Config, db *postgres.DB) (*App, error) {
	cost, err := costModel(cfg.Engine)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Inputs:  postgres.NewInputRepository(db.DB),
		Metrics: metrics.NewRecorder(),
	}

	opts := service.Options{
		Cache:      cache.NewNoopSummaryCache(),
		Lock:       cache.NewLocalRunLock(),
		Archive:    storage.NewNoopArchiver(),
		Metrics:    a.Metrics,
		JobTimeout: cfg.Engine.JobTimeout(),
		LockTTL:    cfg.Engine.LockTTL(),
		Location:   cfg.Engine.Location(),
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process run lock and no summary cache")
		} else {
			a.redis = client
			opts.Cache = cache.NewSummaryCache(client, cache.SummaryTTL(cfg.Cache))
			opts.Lock = cache.NewRedisRunLock(client)
		}
	}

	if cfg.Archive.Enabled {
		client, err := storage.NewS3Client(cfg.Archive)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot archive disabled")
		} else {
			opts.Archive = storage.NewSnapshotArchiver(client)
		}
	}

	engine := pipeline.NewEngine(
		a.Inputs,
		postgres.NewSnapshotRepository(db),
		cost,
		pipeline.Config{PageSize: cfg.Engine.PageSize, WriteBatchSize: cfg.Engine.WriteBatchSize},
	)
	a.Service = service.NewKPIService(engine, postgres.NewRunRepository(db.DB), opts)
	a.Orchestrator = pipeline.NewOrchestrator(a.Service.Run, cfg.Engine.WorkerCount)

	return a, nil
}

// costModel prices styles from ENGINE_STYLE_COSTS when set, falling back to
// the flat ENGINE_UNIT_COST_ESTIMATE.
func costModel(cfg config.EngineConfig) (kpi.CostModel, error) {
	flat, err := kpi.NewFlatCost(cfg.UnitCostEstimate)
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_UNIT_COST_ESTIMATE: %w", err)
	}
	if len(cfg.StyleCosts) == 0 {
		return flat, nil
	}
	table, err := kpi.NewStyleCostTable(cfg.StyleCosts, flat)
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_STYLE_COSTS: %w", err)
	}
	return table, nil
}

// Scheduler builds the cron scheduler from the scheduler settings.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(
		a.Config.Scheduler.Cron,
		a.Config.Engine.Location(),
		a.Orchestrator,
		a.Inputs,
		a.Config.Scheduler.Tenants,
		0,
	)
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}
}
