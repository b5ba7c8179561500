package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/cmd/assetctl/commands"
	"github.com/seaward/assetctl/logger"
)

var (
	flagJSON  bool
	flagDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "assetctl",
	Short: "assetctl - Jira Assets pipeline for device buyout processing",
	Long: `assetctl - Jira Assets client and buyout processing pipeline.

assetctl discovers the asset schema dynamically, reads and writes assets by
human-readable attribute names, and applies the device buyout business
rules: device age, buyout price and asset naming.

Available commands:
  get      - Retrieve assets by ID
  aql      - Query assets with an AQL filter
  update   - Update asset attributes
  create   - Create a new asset
  process  - Run the buyout processing pipeline
  webhook  - Start the webhook receiver server
  version  - Show build information

Examples:
  assetctl get 12345
  assetctl aql 'objectType = "MacBook"' --limit 20
  assetctl update 12345 --attr "Status=In Repair"
  assetctl process --query 'objectType = "MacBook"' --recalculate-buyout
  assetctl webhook`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(flagJSON, flagDebug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug logging")

	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.AqlCmd)
	rootCmd.AddCommand(commands.UpdateCmd)
	rootCmd.AddCommand(commands.CreateCmd)
	rootCmd.AddCommand(commands.ProcessCmd)
	rootCmd.AddCommand(commands.WebhookCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Cleanup()
		os.Exit(1)
	}
}
