// Package cmd contains all CLI commands for commitstream
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitstream/internal/app"
	"github.com/hoanghonghuy/commitstream/internal/config"
)

var (
	cfgFile          string
	verbose          bool
	repoArg          string
	instructionsFile string
	cfg              *config.Config
	logger           *slog.Logger
	version          = "dev"
)

// rootCmd represents the base command; running it bare is the same as
// running "commitstream suggest".
var rootCmd = &cobra.Command{
	Use:   "commitstream",
	Short: "Streaming commit message generator for staged changes",
	Long: `commitstream drafts a commit message from your staged diff, streaming the
suggestion into the terminal as it is generated. Press Ctrl+C while it
streams to cancel just that generation.

Example usage:
  git add -A && commitstream    # Suggest a message for the staged changes
  commitstream dump-prompt      # Show the exact request that would be sent
  commitstream install-hook     # Draft messages inside "git commit"
  commitstream config --edit    # Interactive settings editor
  commitstream activate <key>   # Leave trial mode`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuggest(cmd, "")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .commitstream.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&repoArg, "repo", "", "path to the git repository (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&instructionsFile, "instructions-file", "", "file with extra guidance for the model")

	// Generation flags, layered over env and config file by Viper
	rootCmd.PersistentFlags().String("base-url", "https://api.openai.com/v1", "chat-completions endpoint")
	rootCmd.PersistentFlags().String("model", "gpt-4o-mini", "model name")
	rootCmd.PersistentFlags().Int("max-tokens", 256, "response token ceiling")
	rootCmd.PersistentFlags().Float64("temperature", 0.2, "sampling temperature (0-2)")
	rootCmd.PersistentFlags().Int("timeout", 120, "whole-request timeout in seconds")
	rootCmd.PersistentFlags().Bool("conventional", true, "enforce Conventional Commits")
	rootCmd.PersistentFlags().String("instructions", "", "extra guidance for the model (inline)")
	rootCmd.PersistentFlags().Int("max-chars", 80000, "character budget for the assembled prompt")
	rootCmd.PersistentFlags().Int("max-files", 10, "max staged files sent to the model")
	rootCmd.PersistentFlags().Bool("summarize", true, "summarize file content for larger files")
	rootCmd.PersistentFlags().Int("recent", 5, "recent commits to include as context")
}

// initConfig reads in .env, sets up logging, and loads the configuration.
func initConfig() error {
	// A local .env is honored before env bindings are resolved.
	_ = godotenv.Load()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	var err error
	cfg, err = config.Load(cfgFile, rootCmd.PersistentFlags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Debug("configuration loaded",
		"model", cfg.API.Model,
		"base_url", cfg.API.BaseURL,
		"max_files", cfg.Files.Max,
	)

	return nil
}

func suggestOptions() app.SuggestOptions {
	return app.SuggestOptions{
		RepoArg:          repoArg,
		InstructionsPath: instructionsFile,
	}
}

func runSuggest(cmd *cobra.Command, hookFile string) error {
	a := app.New(cfg, logger)
	opts := suggestOptions()
	opts.HookFile = hookFile
	return a.Suggest(cmd.Context(), opts)
}
