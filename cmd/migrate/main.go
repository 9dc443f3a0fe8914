// Command migrate applies or rolls back the PostgreSQL schema.
//
//	migrate up     apply every pending migration
//	migrate down   roll back the latest migration
package main

import (
	"fmt"
	"os"

	"shortwave/internal/config"
	"shortwave/internal/migrations"
	"shortwave/pkg/logger"
)

func main() {
	if len(os.Args) != 2 || (os.Args[1] != "up" && os.Args[1] != "down") {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)

	if err := run(cfg.Database.DatabaseURL(), os.Args[1], log); err != nil {
		log.Error("Migration failed", "direction", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(databaseURL, direction string, log *logger.Logger) error {
	m, err := migrations.New(databaseURL, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", "error", err)
		}
	}()

	if direction == "down" {
		return m.Down()
	}
	return m.Up()
}
