package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/errors"
	"github.com/seaward/assetctl/jira"
	"github.com/seaward/assetctl/logger"
	"github.com/seaward/assetctl/pipeline"
	"github.com/seaward/assetctl/processor"
)

var (
	processIDs         []string
	processQuery       string
	processLimit       int
	processRefresh     bool
	processRecalculate bool
	processWorkers     int
)

// ProcessCmd runs the buyout processing pipeline.
var ProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the buyout processing pipeline",
	Long: `Run the buyout processing pipeline over a set of assets.

For each asset the rules compute device age, buyout price (unless one is
already stored) and the formatted asset name, and push only the attributes
that actually changed. Failures are isolated per asset; the run report
lists every asset with its outcome.

Select assets with --id (repeatable) or --query. Use --refresh-cache after
schema changes and --recalculate-buyout to override stored prices.

Examples:
  assetctl process --id 12345 --id 12346
  assetctl process --query 'objectType = "MacBook"' --limit 100
  assetctl process --query 'objectType = "MacBook"' --refresh-cache --recalculate-buyout`,
	RunE: runProcess,
}

func init() {
	ProcessCmd.Flags().StringArrayVar(&processIDs, "id", nil, "Asset ID to process (repeatable)")
	ProcessCmd.Flags().StringVarP(&processQuery, "query", "q", "", "AQL filter selecting assets to process")
	ProcessCmd.Flags().IntVarP(&processLimit, "limit", "l", 0, "Maximum number of query results (0 = all)")
	ProcessCmd.Flags().BoolVar(&processRefresh, "refresh-cache", false, "Re-fetch schemas before processing")
	ProcessCmd.Flags().BoolVar(&processRecalculate, "recalculate-buyout", false, "Recalculate stored buyout prices")
	ProcessCmd.Flags().IntVarP(&processWorkers, "workers", "w", 0, "Concurrent update workers (default from config)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	if len(processIDs) == 0 && processQuery == "" {
		return errors.New("select assets with --id or --query")
	}
	if len(processIDs) > 0 && processQuery != "" {
		return errors.New("--id and --query are mutually exclusive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy, err := processor.Load(cfg.Policy.Path)
	if err != nil {
		return err
	}

	client := jira.NewClient(cfg, logger.Logger)
	defer client.Close()

	workers := processWorkers
	if workers == 0 {
		workers = cfg.Process.Workers
	}

	runner := pipeline.NewRunner(client, policy, logger.Logger)
	report, err := runner.Run(cmd.Context(), pipeline.Options{
		IDs:               processIDs,
		Query:             processQuery,
		Limit:             processLimit,
		RefreshCache:      processRefresh,
		RecalculateBuyout: processRecalculate,
		Workers:           workers,
	})
	if report != nil {
		if derr := displayReport(report, logger.JSONOutput); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

func displayReport(report *pipeline.Report, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(report)
	}

	updated, unchanged, failed := report.Counts()
	fmt.Printf("Run %s: %d updated, %d unchanged, %d failed (%s)\n\n",
		report.RunID, updated, unchanged, failed,
		report.Finished.Sub(report.Started).Round(time.Millisecond))

	for _, o := range report.Outcomes {
		switch o.Status {
		case pipeline.StatusUpdated:
			fmt.Printf("  %s  updated   %v\n", o.AssetID, o.Changed)
		case pipeline.StatusUnchanged:
			fmt.Printf("  %s  unchanged\n", o.AssetID)
		case pipeline.StatusFailed:
			fmt.Printf("  %s  FAILED    %s\n", o.AssetID, o.Error)
		}
	}
	return nil
}
