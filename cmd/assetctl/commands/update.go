package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/logger"
)

var (
	updateAttrFlags []string
	updateAttrsJSON string
)

// UpdateCmd updates attributes on an existing asset.
var UpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update asset attributes",
	Long: `Update attributes on an existing asset by name.

The whole change set is validated against the asset's schema before
anything is sent; an unknown attribute name rejects the entire update.
Attributes already holding the given value are left untouched, and if
nothing differs no write happens at all. An empty value clears the
attribute.

Examples:
  assetctl update 12345 --attr "Status=In Repair"
  assetctl update 12345 --attr "Buyout Price=450.00" --attr "Device Age=20"
  assetctl update 12345 --attrs '{"Status": "Retired", "Serial Number": null}'`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	UpdateCmd.Flags().StringArrayVar(&updateAttrFlags, "attr", nil, "Attribute as name=value (repeatable)")
	UpdateCmd.Flags().StringVar(&updateAttrsJSON, "attrs", "", "Attributes as a JSON object")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	changes, err := parseAttrFlags(updateAttrFlags, updateAttrsJSON)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	asset, changed, err := client.UpdateObject(cmd.Context(), args[0], changes)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Printf("Asset %s already up to date\n", args[0])
	}
	return displayAsset(asset, logger.JSONOutput)
}
