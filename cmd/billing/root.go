package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/flexprice/ispbilling/internal/app"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Operate the ISP billing ledger from the command line",
	Long: `billing runs the recurring invoice cycle, bills prorated first periods
and applies database migrations against the configured postgres database.

Configuration is read from config.yaml and ISPBILLING_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("tenant", types.DefaultTenantID, "Tenant to operate on")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Minute, "Abort the command after this long")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.L.Errorw("command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// withApp starts the shared dependency graph, populates targets from it and
// runs fn with a tenant scoped context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context) error, targets ...interface{}) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	tenantID, _ := cmd.Flags().GetString("tenant")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fxApp := fx.New(app.Module, fx.Populate(targets...))
	if err := fxApp.Err(); err != nil {
		return err
	}
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer stopCancel()
		_ = fxApp.Stop(stopCtx)
	}()

	ctx = types.WithDefaultTenant(types.SetTenantID(ctx, tenantID))
	return fn(ctx)
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q, use RFC3339: %w", value, err)
	}
	t = t.UTC()
	return &t, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
