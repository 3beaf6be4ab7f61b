package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"finapi/internal/config"
	"finapi/internal/storage/mongodb"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var configPath, migrationsPath string
	flag.StringVar(&configPath, "config", "", "path to config file (or use CONFIG_PATH env)")
	flag.StringVar(&migrationsPath, "migrations", "migrations", "path to migrations directory")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "config/local.yaml"
	}

	cfg := config.LoadConfig(configPath)

	switch cfg.Storage.Type {
	case "sqlite":
		m, err := migrate.New(
			"file://"+migrationsPath,
			"sqlite3://"+cfg.Storage.Path,
		)
		if err != nil {
			log.Fatalf("failed to init migrator: %v", err)
		}
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Println("no migrations to apply")
				return
			}
			log.Fatalf("failed to apply migrations: %v", err)
		}
		log.Println("migrations applied")

	case "mongodb":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Println("connecting to MongoDB...")
		// Indexes (unique username/email/token_hash) are ensured on connect.
		storage, err := mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		defer storage.Close(ctx)
		log.Println("MongoDB connected, indexes created successfully")

	default:
		log.Fatalf("unknown storage type: %s", cfg.Storage.Type)
	}
}
