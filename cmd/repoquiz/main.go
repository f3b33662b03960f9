// Package main implements the repoquiz CLI for driving analysis runs
// against the repoquiz analysis server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
	"github.com/fyrsmithlabs/repoquiz/internal/config"
	"github.com/fyrsmithlabs/repoquiz/internal/logging"
	"github.com/fyrsmithlabs/repoquiz/internal/orchestrator"
	"github.com/fyrsmithlabs/repoquiz/internal/prefs"
)

var (
	// serverURL overrides the configured server base URL
	serverURL string
	// configPath points at an optional YAML config file
	configPath string
	// generation parameters for analyze and regen
	repoURL      string
	questionType string
	difficulty   string
	// recentLimit bounds the recent command
	recentLimit int
	// credential values for creds set
	credRepoToken string
	credAIKey     string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repoquiz",
	Short: "CLI for repoquiz analysis server operations",
	Long: `repoquiz is a command-line interface for the repoquiz analysis server.
It runs the question pipeline for an analyzed repository and lists recent
analyses.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "analysis server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	for _, cmd := range []*cobra.Command{analyzeCmd, regenCmd} {
		cmd.Flags().StringVar(&repoURL, "repo", "", "repository URL to pass to question generation")
		cmd.Flags().StringVar(&questionType, "type", "", "question type to generate")
		cmd.Flags().StringVar(&difficulty, "difficulty", "", "question difficulty to generate")
	}
	recentCmd.Flags().IntVar(&recentLimit, "limit", 10, "maximum number of analyses to list")

	credsSetCmd.Flags().StringVar(&credRepoToken, "repo-token", "", "repository access token")
	credsSetCmd.Flags().StringVar(&credAIKey, "ai-key", "", "AI provider key")
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsClearCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(regenCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(credsCmd)
	rootCmd.AddCommand(versionCmd)
}

// analyzeCmd runs the full question pipeline for an analysis
var analyzeCmd = &cobra.Command{
	Use:   "analyze <analysis-id>",
	Short: "Run the question pipeline for an analyzed repository",
	Long: `Run the question pipeline for an analyzed repository.

Fetches the analysis, its dependency graph and file tree, then reuses
existing questions or generates a new set.

Examples:
  # Run the pipeline
  repoquiz analyze abc123

  # Use a different server
  repoquiz analyze --server http://localhost:8080/api abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(args[0], false)
	},
}

// regenCmd forces a fresh generation even when questions already exist
var regenCmd = &cobra.Command{
	Use:   "regen <analysis-id>",
	Short: "Regenerate questions, discarding any existing set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(args[0], true)
	},
}

// recentCmd lists recent analyses, serving from the local cache when fresh
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent analyses",
	RunE:  runRecent,
}

// credsCmd manages the stored credentials used by question generation.
// Values are persisted in the preference file (0600) and sent only on
// generation requests; they are never logged or echoed back.
var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage stored credentials for question generation",
}

var credsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the repository token and AI provider key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if credRepoToken == "" && credAIKey == "" {
			return fmt.Errorf("nothing to store: pass --repo-token and/or --ai-key")
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		existingToken, existingKey := store.Credentials()
		if credRepoToken == "" {
			credRepoToken = existingToken
		}
		if credAIKey == "" {
			credAIKey = existingKey
		}
		if err := store.SetCredentials(credRepoToken, credAIKey); err != nil {
			return fmt.Errorf("failed to store credentials: %w", err)
		}
		fmt.Println("credentials stored")
		return nil
	},
}

var credsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored preferences, credentials included",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear preferences: %w", err)
		}
		fmt.Println("preferences cleared")
		return nil
	},
}

func openStore() (*prefs.Store, error) {
	path, err := prefs.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate preferences: %w", err)
	}
	store, err := prefs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}
	return store, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the repoquiz version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("repoquiz %s\n", version)
	},
}

// app bundles the wired collaborators behind every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *prefs.Store
	service *orchestrator.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.Config{
		BaseURL:     cfg.Server.BaseURL,
		Timeout:     cfg.Server.Timeout,
		RateLimit:   cfg.Server.RateLimit,
		Credentials: store,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	service := orchestrator.NewService(client, orchestrator.Options{
		MaxDepth: cfg.Files.MaxDepth,
		MaxFiles: cfg.Files.MaxFiles,
		Logger:   logger,
	})

	return &app{cfg: cfg, logger: logger, store: store, service: service}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// runSingle drives one analyze or regen run and renders its progress.
func runSingle(analysisID string, force bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := orchestrator.GenerateOptions{
		RepoURL:      repoURL,
		QuestionType: questionType,
		Difficulty:   difficulty,
	}

	var run *orchestrator.Run
	if force {
		run = a.service.Regenerate(ctx, analysisID, opts)
	} else {
		run = a.service.Analyze(ctx, analysisID, opts)
	}

	snaps, cancel := run.Subscribe()
	defer cancel()

	r := newRenderer(os.Stdout)
	for snap := range snaps {
		r.observe(snap)
	}

	result, err := run.Wait(ctx)
	if err != nil {
		var pending *api.PendingError
		if errors.As(err, &pending) {
			// Informational: the backend is still analyzing the repository.
			r.pending(pending.Detail)
			return nil
		}
		return fmt.Errorf("run failed: %w", err)
	}

	r.summary(result)
	return nil
}

// runRecent serves the recent list from the preference cache when it is
// still fresh, otherwise fetches it and refills the cache.
func runRecent(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if cached, ok := a.store.Recent(); ok {
		a.service.Metrics().RecordRecentCacheHit()
		printRecent(os.Stdout, cached, true)
		return nil
	}
	a.service.Metrics().RecordRecentCacheMiss()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := a.service.List(ctx, recentLimit)
	result, err := run.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recent analyses: %w", err)
	}

	if err := a.store.SetRecent(result.Recent); err != nil {
		a.logger.Warn("failed to cache recent analyses", zap.Error(err))
	}
	printRecent(os.Stdout, result.Recent, false)
	return nil
}
