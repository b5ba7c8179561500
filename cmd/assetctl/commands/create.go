package commands

import (
	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/logger"
)

var (
	createAttrFlags []string
	createAttrsJSON string
)

// CreateCmd creates a new asset.
var CreateCmd = &cobra.Command{
	Use:   "create TYPE",
	Short: "Create a new asset",
	Long: `Create a new asset of the given object type.

The type name must match an object type in the configured schema exactly.
All attribute values are validated against the type's schema before the
create call is issued.

Examples:
  assetctl create MacBook --attr "Model=MacBook Pro" --attr "Serial Number=S0099"
  assetctl create MacBook --attrs '{"Model": "MacBook Air", "Purchase Cost": 1200}'`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	CreateCmd.Flags().StringArrayVar(&createAttrFlags, "attr", nil, "Attribute as name=value (repeatable)")
	CreateCmd.Flags().StringVar(&createAttrsJSON, "attrs", "", "Attributes as a JSON object")
}

func runCreate(cmd *cobra.Command, args []string) error {
	values, err := parseAttrFlags(createAttrFlags, createAttrsJSON)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	asset, err := client.CreateObject(cmd.Context(), args[0], values)
	if err != nil {
		return err
	}
	return displayAsset(asset, logger.JSONOutput)
}
