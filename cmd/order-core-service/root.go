package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

// newRootCommand builds the order-core-service CLI. serve runs the HTTP API
// and background maintenance workers; migrate applies the Postgres schema;
// rebalance-now triggers a single out-of-band rebalance pass, for operators
// recovering a queue by hand without waiting for the next ticker tick.
func newRootCommand(log *logger.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "order-core-service",
		Short: "Order Orchestration Core: inventory deduction, pricing, priority scoring, queue sequencing, and lifecycle control",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.WithField("command", cmd.Name()).Info("order-core-service command started")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("ORDER_CORE_CONFIG"), "path to the service config file")

	root.AddCommand(newServeCommand(&configPath, log))
	root.AddCommand(newMigrateCommand(&configPath, log))
	root.AddCommand(newRebalanceNowCommand(&configPath, log))
	return root
}
