package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"repairdesk/internal/catalog"
	mongoMigration "repairdesk/internal/migrations/mongo"
	"repairdesk/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	seed := flag.Bool("seed", false, "upsert the default device and repair issue catalog after migrating")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job", "seed", *seed)

	err := migrate(ctx, cfg, *seed)
	cancel()
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrate(ctx context.Context, cfg *config.Config, seed bool) error {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		return err
	}
	if !seed {
		return nil
	}

	n, err := catalog.Seed(ctx, catalog.NewMongoRepositoryFromDB(cfg, db))
	if err != nil {
		return fmt.Errorf("catalog seed stopped after %d entries: %w", n, err)
	}
	cfg.Log.Info("Catalog seeded", "entries", n)
	return nil
}
