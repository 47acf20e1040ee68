package main

import (
	"os"

	"CashNudge/internal/config"

	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "cashnudge",
	Short:        "Untracked cash reconciliation and nudges",
	Long:         "Compare cash withdrawals with logged cash spending and nudge users to log what is missing.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.Path(), "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd, batchCmd, runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
