// The server binary runs AutoReviewBot as a GitHub App webhook service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevigo/autoreviewbot/internal/app"
	"github.com/sevigo/autoreviewbot/internal/config"
	"github.com/sevigo/autoreviewbot/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "json", nil)
	slog.SetDefault(log)

	if cfg.GitHubAppID == 0 {
		log.Error("GITHUB_APP_ID must be set for server mode")
		os.Exit(1)
	}
	if cfg.GitHubWebhookSecret == "" {
		log.Error("GITHUB_WEBHOOK_SECRET must be set for server mode")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	if err := application.Stop(); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		os.Exit(1)
	}
}
