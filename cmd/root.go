package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/nightfix/internal/analyze"
	"github.com/joescharf/nightfix/internal/git"
	"github.com/joescharf/nightfix/internal/llm"
	"github.com/joescharf/nightfix/internal/output"
	"github.com/joescharf/nightfix/internal/patch"
	"github.com/joescharf/nightfix/internal/ratelimit"
	"github.com/joescharf/nightfix/internal/review"
	"github.com/joescharf/nightfix/internal/schedule"
	"github.com/joescharf/nightfix/internal/store"
	"github.com/joescharf/nightfix/internal/syntax"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "nightfix",
	Short: "Unattended nightly bug fixer - analyzes repos and opens PRs",
	Long: `nightfix reviews your repositories overnight: it asks an LLM to find
one clear, high-confidence bug per repo, applies the fix with syntax
verification and rollback, and opens a pull request for human review
in the morning.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Analyze and apply locally but never push or open PRs")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/nightfix/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "nightfix")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NIGHTFIX")
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "nightfix")

	viper.SetDefault("repos", []string{})
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "nightfix.db"))
	viper.SetDefault("clone_dir", filepath.Join(defaultConfigDir, "clones"))
	viper.SetDefault("heartbeat_path", filepath.Join(defaultConfigDir, "heartbeat"))
	viper.SetDefault("github.username", "nightfix-bot")
	viper.SetDefault("github.email", "nightfix@localhost")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("schedule.start", "02:00")
	viper.SetDefault("schedule.deadline", "06:00")
	viper.SetDefault("schedule.report", "07:00")
	viper.SetDefault("timezone", "America/New_York")
	viper.SetDefault("max_workers", 3)
	viper.SetDefault("branch_prefix", "nightfix/")
	viper.SetDefault("rate.min_delay", "500ms")
	viper.SetDefault("notify.channel", "discord")
	viper.SetDefault("notify.webhook_url", "")
	viper.SetDefault("run_tests", false)
	viper.SetDefault("test_timeout", "5m")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// timezone resolves the configured location.
func timezone() (*time.Location, error) {
	loc, err := time.LoadLocation(viper.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return loc, nil
}

// buildRunner wires the full review pipeline from configuration.
func buildRunner() (*review.Runner, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	loc, err := timezone()
	if err != nil {
		return nil, err
	}
	deadline, err := schedule.NewDeadlineEnforcer(viper.GetString("schedule.deadline"), loc)
	if err != nil {
		return nil, err
	}

	repos := viper.GetStringSlice("repos")
	if len(repos) == 0 {
		return nil, fmt.Errorf("no repositories configured (set 'repos' in config)")
	}

	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic.api_key not configured (or set NIGHTFIX_ANTHROPIC_API_KEY)")
	}
	client := llm.NewAnthropicClient(apiKey, viper.GetString("anthropic.model"))

	// The quota lookup itself must not go through the limiter, so the
	// limiter gets an unthrottled client.
	quotaClient := git.NewGitHubClient(nil)
	limiter := ratelimit.New(viper.GetDuration("rate.min_delay"), quotaClient, ui)
	github := git.NewGitHubClient(limiter)

	repoMgr := git.NewRepoManager(
		viper.GetString("clone_dir"),
		viper.GetString("github.username"),
		viper.GetString("github.email"),
		limiter, ui)

	cfg := review.Config{
		Repos:        repos,
		MaxWorkers:   viper.GetInt("max_workers"),
		BranchPrefix: viper.GetString("branch_prefix"),
		DryRun:       dryRun,
		RunTests:     viper.GetBool("run_tests"),
		TestTimeout:  viper.GetDuration("test_timeout"),
	}

	return review.NewRunner(cfg,
		repoMgr,
		github,
		analyze.New(client, ui),
		patch.New(syntax.NewVerifier(ui)),
		deadline,
		s, ui), nil
}
