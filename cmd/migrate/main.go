package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status]

import (
	"context"
	"flag"
	"log"
	"os"

	"docqa-backend/internal/shared/config"
	"docqa-backend/internal/shared/storage/db"
)

func main() {
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		log.Printf("failed to run migrations (%s): %v", command, err)
		os.Exit(1)
	}
	log.Printf("migrate %s: done", command)
}
