package main

import (
	"log"
	"os"

	"vaultback/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitDB()

	if len(os.Args) > 1 && os.Args[1] == "down" {
		config.RollbackMigration()
		return
	}
	config.ExecuteMigrations()
}
