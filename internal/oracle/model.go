package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/autoreviewbot/internal/config"
)

// newOracleHTTPClient creates an HTTP client with generous timeouts; local
// models can take a while to produce a full review.
func newOracleHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   5 * time.Minute,
	}
}

// NewModel creates the LLM client for the configured oracle provider.
func NewModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	switch cfg.OracleProvider {
	case "gemini":
		logger.Info("using gemini oracle provider", "model", cfg.OracleModelName)
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set for the gemini provider")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.OracleModelName),
			gemini.WithAPIKey(cfg.GeminiAPIKey),
		)

	case "ollama":
		logger.Info("using ollama oracle provider", "model", cfg.OracleModelName, "host", cfg.OllamaHost)
		return ollama.New(
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithModel(cfg.OracleModelName),
			ollama.WithHTTPClient(newOracleHTTPClient()),
			ollama.WithLogger(logger),
		)

	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.OracleProvider)
	}
}
