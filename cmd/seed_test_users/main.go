package main

import (
	"context"
	"errors"
	"log"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/database"
	"github.com/dietvite/backend/internal/service"
)

// Test users get a fresh challenge; the password is shared
const password = "testpassword123"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	// seeding never calls a model, so no generator is needed
	challengeService := service.NewChallengeService(db, service.NewAgents(nil, cfg.Diet), cfg.Diet)

	testUsers := []struct {
		username  string
		email     string
		timeFrame int
	}{
		{"johndoe", "john.doe@example.com", 7},
		{"janesmith", "jane.smith@example.com", 30},
		{"bobwilson", "bob.wilson@example.com", 60},
	}

	ctx := context.Background()
	for _, u := range testUsers {
		user, err := authService.Signup(ctx, u.username, u.email, password)
		if errors.Is(err, service.ErrUserExists) {
			log.Printf("User %s already exists, skipping", u.username)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.username, err)
		}

		if _, err := challengeService.Reset(ctx, user.ID, u.timeFrame); err != nil {
			log.Fatalf("Failed to start challenge for %s: %v", u.username, err)
		}
		log.Printf("Created test user %s with a %d-day challenge", u.username, u.timeFrame)
	}

	log.Printf("Test users seeded, password: %s", password)
}
