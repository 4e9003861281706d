// Package cli implements the calsync command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/calsync/internal/app"
	"github.com/nhle/calsync/internal/model"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dbPath     string
	verbose    bool
}

// NewRootCommand builds the calsync command tree.
func NewRootCommand(version string) *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "calsync",
		Short: "Reconcile calendar events into scheduled tasks",
		Long: `calsync turns busy calendar events into tasks with per-day schedule rows
and keeps them in step with the calendar: moved events move their rows,
deleted events remove them, and detached tasks are left alone.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "Override the database path")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(connectionCmd(g))
	root.AddCommand(stageCmd(g))
	root.AddCommand(reconcileCmd(g))
	root.AddCommand(detachCmd(g))
	root.AddCommand(watchCmd(g))
	root.AddCommand(configCmd(g))

	return root
}

// Execute runs the root command and reports any error on stderr.
func Execute(version string) error {
	root := NewRootCommand(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (g *globals) loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	return cfg, nil
}

func (g *globals) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// open loads the config and opens the app. The caller must Close it.
func (g *globals) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(cfg, g.logger(cmd))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return a, nil
}
