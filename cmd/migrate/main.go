package main

import (
	"log"

	"github.com/liveshop/backend/config"
	"github.com/liveshop/backend/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migrations complete")
}
