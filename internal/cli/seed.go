package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

// NewSeedCommand writes the demo catalog straight to the database, bypassing
// the access rules the HTTP seed action is subject to.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the demo catalog to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runSeed(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), storefront.SeedMessage(n, nil))
			return nil
		},
	}
}

func runSeed(ctx context.Context, opts *RootOptions) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, err
	}
	if cfg.DatabaseDSN == "" {
		return 0, fmt.Errorf("seed: %w", errNoDatabase)
	}
	logger := opts.logger()

	seed, err := catalog.LoadSeed()
	if err != nil {
		return 0, err
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	defer b.Close()

	return storefront.SeedStore(ctx, b.store, seed.Products, logger)
}

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations, or roll back with --down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseDSN == "" {
				return fmt.Errorf("migrate: %w", errNoDatabase)
			}
			if down > 0 {
				return db.RollbackMigrations(cfg.DatabaseDSN, down, rootOpts.logger())
			}
			return db.RunMigrations(cfg.DatabaseDSN, rootOpts.logger())
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations")

	return cmd
}
