// Command migrate manages the scanner's database schemas: the Postgres
// accounts schema and the ClickHouse scan history table.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/contract-scanner/internal/config"
	"github.com/contract-scanner/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Target database: postgres, clickhouse")
		path   = flag.String("path", "", "Migrations directory (defaults to migrations/<db>)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	migrationsPath := *path
	if migrationsPath == "" {
		migrationsPath = "migrations/" + *dbType
	}

	var runErr error
	switch *dbType {
	case "postgres":
		runErr = migratePostgres(&cfg.Database.Postgres, *action, migrationsPath)
	case "clickhouse":
		runErr = migrateClickHouse(&cfg.Database.ClickHouse, *action, migrationsPath)
	default:
		runErr = fmt.Errorf("unknown database: %s", *dbType)
	}
	if runErr != nil {
		log.Fatalf("Migration failed: %v", runErr)
	}
}

func postgresURL(cfg *config.PostgresConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func migratePostgres(cfg *config.PostgresConfig, action, path string) error {
	url := postgresURL(cfg)

	switch action {
	case "up":
		if err := storage.RunMigrations(url, path); err != nil {
			return err
		}
		log.Println("Accounts schema is up to date")
		return nil

	case "down":
		if err := storage.RollbackMigrations(url, path); err != nil {
			return err
		}
		log.Println("Rolled back one accounts migration")
		return nil

	case "version":
		version, dirty, err := storage.MigrationVersion(url, path)
		if err != nil {
			return err
		}
		log.Printf("Accounts schema version: %d (dirty: %v)", version, dirty)
		return nil

	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}

func migrateClickHouse(cfg *config.ClickHouseConfig, action, path string) error {
	// MergeTree history is append-only; there is nothing to roll back
	if action != "up" {
		return fmt.Errorf("clickhouse migrations only support the 'up' action")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory not found: %s", path)
	}

	db, err := storage.NewClickHouseDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing ClickHouse connection: %v", err)
		}
	}()

	if err := storage.RunClickHouseMigrations(db, path); err != nil {
		return err
	}
	log.Println("Scan history schema is up to date")
	return nil
}
