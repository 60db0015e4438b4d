package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/api"
	"github.com/dietvite/backend/internal/database"
	"github.com/dietvite/backend/internal/middleware"
	"github.com/dietvite/backend/internal/router"
	"github.com/dietvite/backend/internal/server"
	"github.com/dietvite/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis is optional: without it scores are not cached and rate limiting stays in memory
	var redisClient *redis.Client
	if client, err := database.NewRedisClient(cfg); err != nil {
		log.Printf("Redis unavailable, continuing without it: %v", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	// Initialize services
	groq, err := service.NewGroqClient(cfg.GroqAPIURL, cfg.GroqAPIKeys)
	if err != nil {
		log.Fatalf("Failed to create Groq client: %v", err)
	}
	agents := service.NewAgents(groq, cfg.Diet)
	authService := service.NewAuthService(db, cfg.JWTSecret)
	challengeService := service.NewChallengeService(db, agents, cfg.Diet)
	if redisClient != nil {
		challengeService.WithScoreCache(service.NewRedisScoreCache(redisClient, time.Hour))
	}

	if cfg.ArchiveBucket != "" {
		s3cfg, err := config.NewS3Config(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		challengeService.WithArchiver(service.NewS3ArchiverFromConfig(s3cfg))
		log.Printf("Archiving finished challenges to s3://%s", cfg.ArchiveBucket)
	}

	engine := router.SetupRouter(router.Deps{
		AuthHandler:      api.NewAuthHandler(authService, config.IsProduction()),
		ChallengeHandler: api.NewChallengeHandler(challengeService),
		HealthHandler:    api.NewHealthHandler(db, redisClient),
		AuthService:      authService,
		QueryLimiter:     middleware.NewQueryRateLimiter(redisClient),
		CORSOrigins:      cfg.CORSOrigins,
	})
	srv := server.New(cfg, engine)

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		log.Println("Starting server...")
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
