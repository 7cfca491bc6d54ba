package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/kanban/internal/launchpad"
	"github.com/joescharf/kanban/internal/output"
	"github.com/joescharf/kanban/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Kanban boards for Launchpad milestones, people and roadmaps",
	Long: `kanban classifies bugs into workflow stages (queued, in progress,
needs review, needs testing, needs release, released) and draws them as a
board for a milestone or for a person or team. It also renders roadmap
files as a grid of time periods and tracks.`,
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
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without writing files")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/kanban/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("KANBAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	dir, _ := configDirFunc()
	setDefaults(dir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value, using dir
// for state.
func setDefaults(dir string) {
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "kanban.db"))
	viper.SetDefault("launchpad.service_root", launchpad.DefaultServiceRoot)
	viper.SetDefault("launchpad.web_root", launchpad.DefaultWebRoot)
	viper.SetDefault("launchpad.consumer_key", "kanban")
	viper.SetDefault("launchpad.oauth_token", "")
	viper.SetDefault("launchpad.oauth_token_secret", "")
	viper.SetDefault("launchpad.max_concurrency", 4)
	viper.SetDefault("launchpad.requests_per_second", 0)
	viper.SetDefault("launchpad.released_within_days", 31)
	viper.SetDefault("board.include_needs_testing", false)
	viper.SetDefault("snapshots.keep", 5)
	viper.SetDefault("warn.in_progress_days", 3)
	viper.SetDefault("warn.review_days", 1)
	viper.SetDefault("danger.in_progress_days", 7)
	viper.SetDefault("danger.review_days", 3)
	viper.SetDefault("roadmap", "")
	viper.SetDefault("port", 8080)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// The store is opened lazily, only by commands that cache snapshots.
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

	if err := s.Migrate(cmdContext()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// cmdContext returns the root command context, or Background when the
// command tree was not started through Execute.
func cmdContext() context.Context {
	if ctx := rootCmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
