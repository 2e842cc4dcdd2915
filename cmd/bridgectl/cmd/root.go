package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the bridgectl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bridgectl",
		Short: "Trading desk event bridge tool",
		Long: `bridgectl inspects and exercises the event bridge of the trading desk.

Available commands:
  topics     Explore the topic catalogue
  listen     Print every event the bridge dispatches
  simulate   Run a stand-in for the trading backend
  version    Print the version

Use "bridgectl [command] --help" for more information about a specific command.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newTopicsCmd(),
		newListenCmd(),
		newSimulateCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute executes the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
