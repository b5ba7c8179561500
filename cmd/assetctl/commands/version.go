package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/logger"
	"github.com/seaward/assetctl/version"
)

// VersionCmd shows build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show assetctl version information",
	Long:  `Display version, build time, commit hash, and platform information for the assetctl binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		if logger.JSONOutput {
			printJSON(info)
			return
		}
		fmt.Println(info.String())
		fmt.Printf("Platform: %s\n", info.Platform)
		fmt.Printf("Go: %s\n", info.GoVersion)
	},
}
