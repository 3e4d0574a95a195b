package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sevigo/autoreviewbot/internal/batch"
	"github.com/sevigo/autoreviewbot/internal/config"
	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/diffsource"
	"github.com/sevigo/autoreviewbot/internal/github"
	"github.com/sevigo/autoreviewbot/internal/gitutil"
	"github.com/sevigo/autoreviewbot/internal/jobs"
	"github.com/sevigo/autoreviewbot/internal/logger"
	"github.com/sevigo/autoreviewbot/internal/oracle"
	"github.com/sevigo/autoreviewbot/internal/rules"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Dry-run the review and render the summary locally",
	Long: `Collect the local diff, consult the oracle, and render the summary
comment in the terminal. Nothing is posted to GitHub and no status is set.`,
	RunE: runPreview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	log := logger.New(cfg.LogLevel, "text", nil)

	ruleSet, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return err
	}

	gitClient, err := gitutil.NewClient(".", log)
	if err != nil {
		return err
	}
	source := diffsource.NewGitSource(gitClient, cfg.BaseRef, log)

	files, err := source.ChangedFiles(ctx, nil)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		successColor.Println("no changes to review")
		return nil
	}
	dimColor.Printf("reviewing %d changed file(s) against %s\n", len(files), cfg.BaseRef)

	model, err := oracle.NewModel(ctx, cfg, log)
	if err != nil {
		return err
	}
	reviewer, err := oracle.NewClient(model, cfg.OracleCallTimeout(), cfg.MaxFindings, log)
	if err != nil {
		return err
	}

	changedSet := make(map[string]struct{}, len(files))
	for _, f := range files {
		changedSet[f.Path] = struct{}{}
	}

	var violations []core.Violation
	for i, b := range batch.Pack(files, cfg.MaxBatchChars) {
		candidates, err := reviewer.Review(ctx, b.DiffText(), ruleSet)
		if err != nil {
			warnColor.Printf("oracle gave up on batch %d: %v\n", i, err)
			continue
		}
		for _, c := range candidates {
			v, err := jobs.ViolationFromCandidate(c, &b, changedSet, ruleSet)
			if err != nil {
				warnColor.Printf("dropping malformed violation: rule=%s file=%s line=%d\n", c.Rule, c.File, c.Line)
				continue
			}
			violations = append(violations, v)
		}
	}

	if len(violations) == 0 {
		successColor.Println("no violations found")
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	out, err := renderer.Render(github.FormatSummary(violations))
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	fmt.Print(out)
	return nil
}
