package main

import (
	"context"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the recurring invoice cycle",
	Long: `Bill every active subscription whose current period has started.

The whole run is one transaction recorded as a billing run. Transient
database failures retry the run with the configured backoff.`,
	Example: `  # Bill everything due now
  billing run

  # Preview a monthly run as of the first of the month
  billing run --run-at 2025-05-01T00:00:00Z --cycle monthly --dry-run`,
	RunE: runInvoiceCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("run-at", "", "Reference time in RFC3339 (default: now)")
	runCmd.Flags().String("cycle", "", "Only bill subscriptions on this cycle (daily, weekly, monthly, yearly)")
	runCmd.Flags().Bool("dry-run", false, "Compute the run and roll it back")
	runCmd.Flags().Bool("include-pending", false, "Also bill pending subscriptions")
	runCmd.Flags().Bool("auto-activate", false, "Activate pending subscriptions once billed")
}

func runInvoiceCycle(cmd *cobra.Command, _ []string) error {
	runAtStr, _ := cmd.Flags().GetString("run-at")
	cycle, _ := cmd.Flags().GetString("cycle")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	runAt, err := parseTime(runAtStr)
	if err != nil {
		return err
	}

	req := dto.RunInvoiceCycleRequest{
		RunAt:  runAt,
		DryRun: dryRun,
	}
	if cycle != "" {
		req.BillingCycle = lo.ToPtr(types.BillingCycle(cycle))
	}
	// unset flags fall back to the billing configuration
	if cmd.Flags().Changed("include-pending") {
		v, _ := cmd.Flags().GetBool("include-pending")
		req.IncludePending = &v
	}
	if cmd.Flags().Changed("auto-activate") {
		v, _ := cmd.Flags().GetBool("auto-activate")
		req.AutoActivatePending = &v
	}
	if err := req.Validate(); err != nil {
		return err
	}

	var svc service.BillingAutomationService
	return withApp(cmd, func(ctx context.Context) error {
		summary, err := svc.RunInvoiceCycleWithRetry(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, summary)
	}, &svc)
}
