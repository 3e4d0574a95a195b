// Package app initializes and orchestrates the main components of the
// webhook server mode. It wires together configuration, the oracle model,
// the dispatcher, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/autoreviewbot/internal/audit"
	"github.com/sevigo/autoreviewbot/internal/config"
	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/db"
	"github.com/sevigo/autoreviewbot/internal/diffsource"
	"github.com/sevigo/autoreviewbot/internal/github"
	"github.com/sevigo/autoreviewbot/internal/jobs"
	"github.com/sevigo/autoreviewbot/internal/oracle"
	"github.com/sevigo/autoreviewbot/internal/rules"
	"github.com/sevigo/autoreviewbot/internal/server"
	"github.com/sevigo/autoreviewbot/internal/storage"
)

// App holds the main application components for server mode.
type App struct {
	cfg        *config.Config
	server     *server.Server
	logger     *slog.Logger
	dispatcher core.JobDispatcher
	dbCleanup  func()
}

// NewApp sets up the server application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing AutoReviewBot server",
		"oracle_provider", cfg.OracleProvider,
		"oracle_model", cfg.OracleModelName,
		"max_workers", cfg.MaxWorkers)

	ruleSet, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}

	model, err := oracle.NewModel(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle model: %w", err)
	}

	auditLog, err := audit.NewLog(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	var store storage.Store
	var dbCleanup = func() {}
	if cfg.Database.Enabled() {
		dbConn, cleanup, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store = storage.NewStore(dbConn.DB)
		dbCleanup = cleanup
	}

	job := &installationJob{
		cfg:      cfg,
		ruleSet:  ruleSet,
		model:    model,
		auditLog: auditLog,
		store:    store,
		logger:   logger,
	}
	dispatcher := jobs.NewDispatcher(job, cfg.MaxWorkers, logger)
	httpServer := server.NewServer(cfg, dispatcher, store, logger)

	logger.Info("AutoReviewBot server initialized")
	return &App{
		cfg:        cfg,
		server:     httpServer,
		logger:     logger,
		dispatcher: dispatcher,
		dbCleanup:  dbCleanup,
	}, nil
}

// Start runs the HTTP server and blocks until shutdown.
func (a *App) Start() error {
	return a.server.Start()
}

// Stop shuts the application down cleanly: server first so no new events
// arrive, then the dispatcher so in-flight reviews finish.
func (a *App) Stop() error {
	a.logger.Info("shutting down AutoReviewBot server")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()
	a.dbCleanup()

	return serverErr
}

// installationJob adapts the review pipeline to server mode: each event
// carries its own installation ID, so the GitHub client, diff source, and
// publisher are constructed per event before the shared pipeline runs.
type installationJob struct {
	cfg      *config.Config
	ruleSet  *core.RuleSet
	model    llms.Model
	auditLog *audit.Log
	store    storage.Store
	logger   *slog.Logger
}

func (ij *installationJob) Run(ctx context.Context, event *core.ReviewEvent) (*core.RunResult, error) {
	ghClient, err := github.CreateInstallationClient(ctx, ij.cfg, event.InstallationID, ij.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	reviewer, err := oracle.NewClient(ij.model, ij.cfg.OracleCallTimeout(), ij.cfg.MaxFindings, ij.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}

	job := jobs.NewReviewJob(
		ij.cfg,
		ij.ruleSet,
		diffsource.NewAPISource(ghClient, ij.logger),
		reviewer,
		ghClient,
		github.NewPublisher(ghClient, ij.logger),
		ij.auditLog,
		ij.store,
		ij.logger,
	)
	return job.Run(ctx, event)
}
