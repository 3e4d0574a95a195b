package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	githubToken string
	rulesPath   string
)

var rootCmd = &cobra.Command{
	Use:   "reviewbot",
	Short: "reviewbot reviews pull request diffs against a rule set.",
	Long: `AutoReviewBot inspects the lines changed in a pull request, asks an
LLM oracle to classify rule violations, posts inline and summary comments,
and gates the commit with a pass/fail status.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token")
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "rules", "r", "", "path to the rule set file")

	if err := viper.BindPFlag("GITHUB_TOKEN", rootCmd.PersistentFlags().Lookup("github-token")); err != nil {
		slog.Error("error binding flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("RULES_PATH", rootCmd.PersistentFlags().Lookup("rules")); err != nil {
		slog.Error("error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
