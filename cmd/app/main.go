// File: cmd/app/main.go
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

type rootFlags struct {
	configPath string
	dev        bool
}

func main() {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "hotspot",
		Short:         "Hotspot billing backend",
		Long:          `M-Pesa STK push billing for a captive portal: payments, callbacks, sessions and vouchers.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version + " (" + commit + ")",
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flags.dev, "dev", false, "enable developer mode (console logs, unredacted phones)")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newMigrateCommand(flags),
		newSweepCommand(flags),
		newReconcileCommand(flags),
		newAdminTokenCommand(flags),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
