package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rewired-gh/sense/internal/config"
	"github.com/rewired-gh/sense/internal/logger"
	"github.com/rewired-gh/sense/internal/storage"
	"github.com/rewired-gh/sense/internal/tracker"
	"github.com/spf13/cobra"
)

// app holds what every command needs once configuration has been loaded.
type app struct {
	configPath string

	cfg     *config.Config
	store   storage.Store
	tracker *tracker.Manager
	now     func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	rootCmd := &cobra.Command{
		Use:   "sense",
		Short: "Track product forecasts and score your calibration",
		Long: `sense records product bets as probabilistic forecasts, closes them with
an observed outcome and scores calibration with weighted Brier scores.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (default: defaults and SENSE_* environment)")

	rootCmd.AddCommand(
		newProfileCmd(a),
		newCreateCmd(a),
		newCloseCmd(a),
		newDeleteCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newStatsCmd(a),
		newWeightsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newClearCmd(a),
		newUsageCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if a.configPath != "" {
		logger.Debug("Configuration loaded from %s", a.configPath)
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path, storage.Options{
		FilePermissions: cfg.Storage.FileMode(),
		DirPermissions:  cfg.Storage.DirMode(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.store = store

	m, err := tracker.New(store, tracker.WithClock(a.now))
	if err != nil {
		_ = store.Close()
		a.store = nil
		return fmt.Errorf("failed to load data: %w", err)
	}
	a.tracker = m
	return nil
}

func (a *app) teardown() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
		return err
	}
	return nil
}
