package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive"
)

var rootCmd = &cobra.Command{
	Use:   "chatarchive",
	Short: "Publish a chat message archive as a static website.",
	Long: `chatarchive turns a SQLite archive of chat messages into a paginated static
site with per-month pages, day counters, navigation scripts and RSS/Atom feeds.

  chatarchive new mysite          scaffold config.yaml, templates and static files
  chatarchive import msgs.json    load messages into the archive database
  chatarchive build               publish the site into publish_dir
  chatarchive watch               rebuild whenever the database changes
  chatarchive serve               preview the published site locally`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringP("config", "c", "config.yaml", "Path to the site config file")
	f.String("log-level", "", "Log level (debug, info, warn, error); overrides config")
}

func main() {
	// Load .env file if it exists
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs once the config is loaded
type app struct {
	config   *core.Config
	logger   *core.Logger
	db       *core.Database
	registry *core.Registry
	archive  *archive.Feature
}

// setup loads the config, applies command overrides and wires the
// archive feature. Features are not initialized yet.
func setup(cmd *cobra.Command, overrides ...func(*core.Config)) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			configPath = ""
		}
	}

	config, err := core.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		config.Log.Level = override
	}
	for _, override := range overrides {
		override(config)
	}
	level, err := core.ParseLevel(config.Log.Level)
	if err != nil {
		return nil, core.NewConfigurationError("invalid log level", err)
	}

	logger := core.NewLoggerWithWriter(cmd.ErrOrStderr(), level)

	db, err := core.OpenDatabase(config.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	registry := core.NewRegistry(logger)
	feature := archive.NewFeature(logger, db, config)
	if err := registry.Register(feature); err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		config:   config,
		logger:   logger,
		db:       db,
		registry: registry,
		archive:  feature,
	}, nil
}

func (a *app) init(ctx context.Context) error {
	return a.registry.InitAll(ctx)
}

func (a *app) close(ctx context.Context) {
	a.registry.ShutdownAll(ctx)
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}
