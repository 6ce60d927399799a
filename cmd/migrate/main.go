package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print pending migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *dryRun {
		pending, err := db.PendingMigrations(ctx)
		if err != nil {
			logger.Fatalw("failed to list pending migrations", "error", err)
		}
		logger.Infow("dry run, printing pending migrations", "count", len(pending))
		for _, name := range pending {
			body, err := postgres.MigrationSQL(name)
			if err != nil {
				logger.Fatalw("failed to read migration", "version", name, "error", err)
			}
			fmt.Printf("-- %s\n%s\n", name, body)
		}
		return
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		logger.Fatalw("migration failed", "applied", applied, "error", err)
	}
	logger.Infow("migration completed", "applied", applied)
}
