package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/logger"
)

// GetCmd retrieves one or more assets by ID.
var GetCmd = &cobra.Command{
	Use:   "get ID [ID...]",
	Short: "Retrieve assets by ID",
	Long: `Retrieve one or more assets by their object ID.

With multiple IDs each asset is fetched independently: a missing or broken
asset is reported in place and does not stop the rest.

Examples:
  assetctl get 12345
  assetctl get 12345 12346 12347 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	results := client.GetObjects(cmd.Context(), args)

	var firstErr error
	for _, res := range results {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			fmt.Printf("%s: ERROR: %v\n", res.ID, res.Err)
			continue
		}
		if err := displayAsset(res.Asset, logger.JSONOutput); err != nil {
			return err
		}
	}
	return firstErr
}
