package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/logger"
)

var aqlLimit int

// AqlCmd queries assets with an AQL filter.
var AqlCmd = &cobra.Command{
	Use:   "aql QUERY",
	Short: "Query assets with an AQL filter",
	Long: `Query assets with an AQL filter against the configured object schema.

The filter is automatically scoped to the configured schema unless it names
one itself. Results page transparently.

Examples:
  assetctl aql 'objectType = "MacBook"'
  assetctl aql 'objectType = "MacBook" AND "Purchase Date" < now(-18M)' --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: runAql,
}

func init() {
	AqlCmd.Flags().IntVarP(&aqlLimit, "limit", "l", 100, "Maximum number of results (0 = all)")
}

func runAql(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	it := client.Query(cmd.Context(), args[0], 0)
	count := 0
	var docs []interface{}
	for it.Next() {
		if logger.JSONOutput {
			docs = append(docs, assetDocument(it.Asset()))
		} else {
			if err := displayAsset(it.Asset(), false); err != nil {
				return err
			}
			fmt.Println()
		}
		count++
		if aqlLimit > 0 && count >= aqlLimit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	if logger.JSONOutput {
		return printJSON(docs)
	}
	fmt.Printf("%d assets\n", count)
	return nil
}
