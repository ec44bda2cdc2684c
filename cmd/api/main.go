package main

import (
	"log"
	"os"

	"vaultback/internal/handlers"
	"vaultback/internal/routes"
	"vaultback/pkg/chain"
	"vaultback/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitSettings()

	// Initialize database
	config.InitDB()

	keystore := chain.NewKeyStore(config.Settings.KeystorePath)
	registry := config.BuildVerifierRegistry(keystore)
	dispatcher := chain.NewDispatcher(registry)
	defer dispatcher.Close()

	// Initialize RabbitMQ (optional, will log warning if not configured)
	var publisher *config.Publisher
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()

		var err error
		publisher, err = config.NewPublisher()
		if err != nil {
			log.Fatal("Failed to create publisher:", err)
		}
		defer publisher.Close()
		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, verification relies on the worker sweep")
	}

	handlers.InitRuntime(registry, dispatcher, publisher)

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
