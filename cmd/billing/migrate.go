package main

import (
	"context"

	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var db *postgres.DB
		return withApp(cmd, func(ctx context.Context) error {
			applied, err := db.Migrate(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"applied": applied})
		}, &db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
