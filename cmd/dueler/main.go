package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/duelhub/debate-dueler/internal/cli"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	}

	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Fatalf("dueler: %v", err)
	}
}
