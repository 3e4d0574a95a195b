// Package config loads and validates the application's configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DBConfig holds connection settings for the optional Postgres audit store.
// The store is disabled when Host is empty.
type DBConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// Enabled reports whether a database was configured at all.
func (d *DBConfig) Enabled() bool {
	return d.Host != ""
}

// Config holds the application's configuration values. It is constructed
// once at startup and passed explicitly to every component that needs it;
// nothing reads ambient globals after LoadConfig returns.
type Config struct {
	LogLevel slog.Level

	// Pull request under review (CI mode).
	GitHubToken      string
	GitHubRepository string // "owner/name"
	GitHubSHA        string
	PRNumber         int
	BaseRef          string

	// Server mode.
	ServerPort           string
	GitHubWebhookSecret  string
	GitHubAppID          int64
	GitHubPrivateKeyPath string
	MaxWorkers           int

	// Review pipeline.
	RulesPath     string
	AuditLogPath  string
	OverrideLabel string
	MaxBatchChars int
	MaxFindings   int

	// Oracle.
	OracleProvider  string // "ollama" or "gemini"
	OllamaHost      string
	OracleModelName string
	GeminiAPIKey    string
	OracleTimeout   int // seconds

	Database DBConfig
}

// OracleCallTimeout is the hard per-call timeout for oracle requests.
func (c *Config) OracleCallTimeout() time.Duration {
	return time.Duration(c.OracleTimeout) * time.Second
}

// RepoOwnerName splits GITHUB_REPOSITORY into its owner and name parts.
func (c *Config) RepoOwnerName() (string, string, error) {
	owner, name, ok := strings.Cut(c.GitHubRepository, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("GITHUB_REPOSITORY must be in owner/name form, got %q", c.GitHubRepository)
	}
	return owner, name, nil
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. A missing required
// credential is fatal; the pipeline must not start without one.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BASE_REF", "origin/main")
	viper.SetDefault("RULES_PATH", "rules.yaml")
	viper.SetDefault("AUDIT_LOG_PATH", "autoreviewbot_violations_log.csv")
	viper.SetDefault("OVERRIDE_LABEL", "override-autoreview")
	viper.SetDefault("MAX_BATCH_CHARS", 12000)
	viper.SetDefault("MAX_FINDINGS", 40)
	viper.SetDefault("ORACLE_PROVIDER", "ollama")
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("ORACLE_MODEL_NAME", "gemma3:latest")
	viper.SetDefault("ORACLE_TIMEOUT_SECONDS", 120)
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/autoreviewbot.private-key.pem")
	viper.SetDefault("DB_PORT", 5432)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read .env file, relying on environment", "error", err)
		}
	}

	if viper.GetString("GITHUB_TOKEN") == "" && viper.GetInt64("GITHUB_APP_ID") == 0 {
		return nil, fmt.Errorf("either GITHUB_TOKEN or GITHUB_APP_ID must be set")
	}
	if viper.GetString("ORACLE_PROVIDER") == "gemini" && viper.GetString("GEMINI_API_KEY") == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set for the gemini provider")
	}

	// Parse the log level string into a slog.Level type.
	var logLevel slog.Level
	logLevelStr := strings.ToLower(viper.GetString("LOG_LEVEL"))
	switch logLevelStr {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	case "info":
		logLevel = slog.LevelInfo
	default:
		slog.Warn("unrecognized log level, defaulting to info", "provided", logLevelStr)
		logLevel = slog.LevelInfo
	}

	return &Config{
		LogLevel:             logLevel,
		GitHubToken:          viper.GetString("GITHUB_TOKEN"),
		GitHubRepository:     viper.GetString("GITHUB_REPOSITORY"),
		GitHubSHA:            viper.GetString("GITHUB_SHA"),
		PRNumber:             viper.GetInt("PR_NUMBER"),
		BaseRef:              viper.GetString("BASE_REF"),
		ServerPort:           viper.GetString("SERVER_PORT"),
		GitHubWebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
		GitHubAppID:          viper.GetInt64("GITHUB_APP_ID"),
		GitHubPrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		MaxWorkers:           viper.GetInt("MAX_WORKERS"),
		RulesPath:            viper.GetString("RULES_PATH"),
		AuditLogPath:         viper.GetString("AUDIT_LOG_PATH"),
		OverrideLabel:        viper.GetString("OVERRIDE_LABEL"),
		MaxBatchChars:        viper.GetInt("MAX_BATCH_CHARS"),
		MaxFindings:          viper.GetInt("MAX_FINDINGS"),
		OracleProvider:       viper.GetString("ORACLE_PROVIDER"),
		OllamaHost:           viper.GetString("OLLAMA_HOST"),
		OracleModelName:      viper.GetString("ORACLE_MODEL_NAME"),
		GeminiAPIKey:         viper.GetString("GEMINI_API_KEY"),
		OracleTimeout:        viper.GetInt("ORACLE_TIMEOUT_SECONDS"),
		Database: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			Username: viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_NAME"),
		},
	}, nil
}
