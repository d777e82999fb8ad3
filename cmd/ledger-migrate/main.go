// ledger-migrate applies the schema to the configured database: embedded
// SQL migrations for PostgreSQL, model-derived tables for SQLite.
package main

import (
	"context"
	"fmt"
	"os"

	"ms-event-ledger/internal/config"
	"ms-event-ledger/internal/database"
	"ms-event-ledger/internal/database/migrations"
	"ms-event-ledger/internal/logger"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var direction string
	var version uint

	flagSet := pflag.NewFlagSet("ledger-migrate", pflag.ContinueOnError)
	flagSet.StringVar(&direction, "direction", "up", "migration direction: up or down")
	flagSet.UintVar(&version, "version", 0, "migrate to this schema version instead (postgres only)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	log := logger.NewWriterLogger(os.Stdout)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if cfg.Database.Driver == database.DriverSQLite {
		if direction != "up" || version != 0 {
			return fmt.Errorf("sqlite only supports creating the schema")
		}
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			return err
		}
		log.Info("MIGRATE", "SQLite schema created")
		return nil
	}

	runner := migrations.NewRunner(bunDB, log)
	defer runner.Close()

	switch {
	case version != 0:
		err = runner.MigrateTo(version)
	case direction == "up":
		err = runner.MigrateUp()
	case direction == "down":
		err = runner.MigrateDown()
	default:
		err = fmt.Errorf("unknown direction %q", direction)
	}
	if err != nil {
		return err
	}
	log.Info("MIGRATE", "Migrations finished")
	return nil
}
