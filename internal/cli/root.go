// Package cli wires the valetudo commands: one-shot sync runs, the serve
// loop, seeding, and trainer-facing exports.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/valetudo/internal/adapters/fetch"
	"github.com/okian/valetudo/internal/adapters/repository"
	service "github.com/okian/valetudo/internal/app"
	"github.com/okian/valetudo/internal/config"
	"github.com/okian/valetudo/internal/domain/feature"
	"github.com/okian/valetudo/internal/domain/rating"
	"github.com/okian/valetudo/internal/domain/retrain"
	"github.com/okian/valetudo/pkg/logger"
)

// RootOptions carries state shared by all subcommands, populated by the root
// command's PersistentPreRunE before any subcommand runs.
type RootOptions struct {
	cfg *config.Config
}

// NewRootCommand creates the valetudo root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "valetudo",
		Short:         "Incremental fight-history sync, ratings, and feature derivation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
					logger.String("log_level", cfg.LogLevel), logger.Error(err))
				_ = logger.SetLevelString("info")
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewMarkTrainedCommand(opts))

	return cmd
}

// openService builds the run coordinator over the configured SQLite store.
// The caller owns the returned store and must Close it.
func openService(cfg *config.Config) (*service.Service, *repository.SQLite, error) {
	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	svc := service.New(store, &fetch.SnapshotFetcher{Path: cfg.SnapshotPath},
		service.WithRatingEngine(rating.New(
			rating.WithKFactor(cfg.KFactor),
			rating.WithInitialRating(cfg.InitialRating),
		)),
		service.WithFeatureBuilder(feature.New(
			feature.WithWindowSize(cfg.WindowSize),
			feature.WithNeutralRating(cfg.InitialRating),
		)),
		service.WithRetrainGate(retrain.New(retrain.WithThreshold(cfg.RetrainThreshold))),
		service.WithModelPath(cfg.ModelPath),
		service.WithRunTimeout(cfg.RunTimeout),
		service.WithLeaseTTL(cfg.LeaseTTL),
		service.WithLogger(logger.Get()),
	)
	return svc, store, nil
}
