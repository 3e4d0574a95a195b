package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/autoreviewbot/internal/audit"
	"github.com/sevigo/autoreviewbot/internal/config"
	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/db"
	"github.com/sevigo/autoreviewbot/internal/diffsource"
	"github.com/sevigo/autoreviewbot/internal/github"
	"github.com/sevigo/autoreviewbot/internal/gitutil"
	"github.com/sevigo/autoreviewbot/internal/jobs"
	"github.com/sevigo/autoreviewbot/internal/logger"
	"github.com/sevigo/autoreviewbot/internal/oracle"
	"github.com/sevigo/autoreviewbot/internal/rules"
	"github.com/sevigo/autoreviewbot/internal/storage"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one review against the pull request configured in the environment",
	Long: `Run one review pass inside a CI pipeline.

The command expects the usual CI environment: a local checkout whose diff
against BASE_REF is under review, GITHUB_TOKEN, GITHUB_REPOSITORY,
GITHUB_SHA, and PR_NUMBER.`,
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(runCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	log := logger.New(cfg.LogLevel, "text", nil)

	owner, repoName, err := cfg.RepoOwnerName()
	if err != nil {
		return err
	}
	if cfg.PRNumber <= 0 {
		return fmt.Errorf("PR_NUMBER must be set for a CI run")
	}
	if cfg.GitHubSHA == "" {
		return fmt.Errorf("GITHUB_SHA must be set for a CI run")
	}
	if cfg.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN must be set for a CI run")
	}

	ruleSet, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return err
	}
	dimColor.Printf("loaded %d rules from %s\n", ruleSet.Len(), cfg.RulesPath)

	gitClient, err := gitutil.NewClient(".", log)
	if err != nil {
		return err
	}

	model, err := oracle.NewModel(ctx, cfg, log)
	if err != nil {
		return err
	}
	reviewer, err := oracle.NewClient(model, cfg.OracleCallTimeout(), cfg.MaxFindings, log)
	if err != nil {
		return err
	}

	auditLog, err := audit.NewLog(cfg.AuditLogPath)
	if err != nil {
		return err
	}

	var store storage.Store
	if cfg.Database.Enabled() {
		dbConn, cleanup, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer cleanup()
		store = storage.NewStore(dbConn.DB)
	}

	ghClient := github.NewPATClient(ctx, cfg.GitHubToken, log)
	job := jobs.NewReviewJob(
		cfg,
		ruleSet,
		diffsource.NewGitSource(gitClient, cfg.BaseRef, log),
		reviewer,
		ghClient,
		github.NewPublisher(ghClient, log),
		auditLog,
		store,
		log,
	)

	event := &core.ReviewEvent{
		RepoOwner:    owner,
		RepoName:     repoName,
		RepoFullName: cfg.GitHubRepository,
		PRNumber:     cfg.PRNumber,
		HeadSHA:      cfg.GitHubSHA,
	}

	start := time.Now()
	result, err := job.Run(ctx, event)
	if err != nil {
		return fmt.Errorf("review run failed: %w", err)
	}

	printRunResult(result, time.Since(start))
	return nil
}

func printRunResult(result *core.RunResult, elapsed time.Duration) {
	if result.Skipped {
		warnColor.Println("review skipped by maintainer override")
		return
	}

	switch result.Conclusion() {
	case "failure":
		errorColor.Printf("review failed: %d violation(s), highest severity %s\n",
			result.TotalViolations, result.HighestSeverity)
	default:
		if result.TotalViolations > 0 {
			warnColor.Printf("review passed with %d violation(s)\n", result.TotalViolations)
		} else {
			successColor.Println("review passed, no violations")
		}
	}
	dimColor.Printf("reviewed %d file(s) in %s\n", result.FilesReviewed, elapsed.Round(time.Millisecond))
}
