// Package cli wires configuration, storage and the HTTP API into the
// storefront command.
package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

type RootOptions struct {
	Quiet bool
}

func (o *RootOptions) logger() *log.Logger {
	if o.Quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Bicycle storefront backend",
		Long: `Serves the bicycle storefront: catalog browsing, cart and checkout,
and the seller dashboard, backed by a live document store.

Configuration is read from the environment (HTTP_ADDR, DATABASE_DSN,
CHANGE_FEED, RABBITMQ_URL, REDIS_URL, UPLOAD_DIR, ...).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "discard log output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
