package main

import (
	"context"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/spf13/cobra"
)

var prorateCmd = &cobra.Command{
	Use:   "prorate",
	Short: "Bill the partial period of a subscription activated mid-cycle",
	Example: `  billing prorate --subscription sub_01J0000000000000000000000
  billing prorate --subscription sub_01J0000000000000000000000 --activation 2025-04-11T00:00:00Z`,
	RunE: runProrate,
}

func init() {
	rootCmd.AddCommand(prorateCmd)

	prorateCmd.Flags().String("subscription", "", "Subscription to bill")
	prorateCmd.Flags().String("activation", "", "Activation time in RFC3339 (default: the subscription's)")
	_ = prorateCmd.MarkFlagRequired("subscription")
}

func runProrate(cmd *cobra.Command, _ []string) error {
	subscriptionID, _ := cmd.Flags().GetString("subscription")
	activationStr, _ := cmd.Flags().GetString("activation")

	activation, err := parseTime(activationStr)
	if err != nil {
		return err
	}

	var svc service.BillingAutomationService
	return withApp(cmd, func(ctx context.Context) error {
		resp, err := svc.GenerateProratedInvoice(ctx, dto.GenerateProratedInvoiceRequest{
			SubscriptionID: subscriptionID,
			ActivationDate: activation,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	}, &svc)
}
