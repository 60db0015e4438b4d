package main

import (
	"flag"
	"log"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/database"
	"github.com/dietvite/backend/internal/models"
)

func main() {
	drop := flag.Bool("drop", false, "Drop the challenge and user tables before migrating")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *drop {
		if err := db.Migrator().DropTable(&models.Challenge{}, &models.User{}); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Dropped existing tables")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	log.Println("All migrations applied successfully.")
}
