package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	disbursementservice "captminter/contexts/rewarding/disbursement-service"
	postgresadapter "captminter/contexts/rewarding/disbursement-service/adapters/postgres"
	"captminter/contexts/rewarding/disbursement-service/adapters/sui"
	workerapp "captminter/contexts/rewarding/disbursement-service/application/workers"
	"captminter/contexts/rewarding/disbursement-service/domain/rewards"
	"captminter/internal/platform/config"
	"captminter/internal/platform/db"
	"captminter/internal/platform/httpserver"
	"captminter/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

var errMissingDatabaseURL = errors.New("DATABASE_URL is required")

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	disbursement workerapp.DisbursementJob
	expirer      workerapp.StaleClaimExpirer
	consumer     workerapp.RewardedConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errMissingDatabaseURL
	}

	pg, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := disbursementservice.NewModule(disbursementservice.Dependencies{
		Sessions: repo,
		Receipts: repo,
		Totals:   repo,
		Clock:    postgresadapter.SystemClock{},
		IDGen:    postgresadapter.UUIDGenerator{},
		Logger:   logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if err := cfg.ValidateWorker(); err != nil {
		return nil, err
	}

	pg, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	ledger, err := sui.NewClient(sui.ClientConfig{
		RPCURL:        cfg.SuiRPCURL,
		PrivateKey:    cfg.PrivateKey,
		PackageID:     cfg.PackageID,
		TreasuryCapID: cfg.TreasuryCapID,
		TokenDecimals: cfg.TokenDecimals,
		GasBudget:     cfg.GasBudget,
		Logger:        logger,
	})
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	bus := messaging.NewBus(logger)
	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := disbursementservice.NewModule(disbursementservice.Dependencies{
		Sessions: repo,
		Receipts: repo,
		Totals:   repo,
		Ledger:   ledger,
		Events:   bus,
		Clock:    postgresadapter.SystemClock{},
		IDGen:    postgresadapter.UUIDGenerator{},
		Policy: rewards.DurationPolicy{
			TokensPerSecond: cfg.TokensPerSecond,
			MaxTokens:       cfg.MaxRewardTokens,
		},
		ClaimLease:    cfg.ClaimLease,
		RetryCooldown: cfg.RetryCooldown,
		MaxAttempts:   cfg.MaxAttempts,
		Logger:        logger,
	})

	return &WorkerApp{
		postgres: pg,
		disbursement: workerapp.DisbursementJob{
			Commands:  module.Commands,
			BatchSize: cfg.BatchSize,
			Logger:    logger,
		},
		expirer: workerapp.StaleClaimExpirer{
			Sessions: repo,
			Clock:    postgresadapter.SystemClock{},
			Logger:   logger,
		},
		consumer: workerapp.RewardedConsumer{
			Subscriber: bus,
			Totals:     repo,
			Logger:     logger,
		},
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run executes one disbursement cycle immediately, then one per tick.
// Cycles are strictly sequential: a cycle that overruns the interval delays
// the next one, it never overlaps it. Per-cycle errors are already logged by
// the jobs and must not stop the loop; the next tick always fires.
func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.consumer.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		_ = w.expirer.RunOnce(ctx)
		_ = w.disbursement.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
