package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gigmarket/internal/database"
)

func main() {
	_ = godotenv.Load()

	command := flag.String("command", "up", "goose command: up, down, status or version")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if !database.IsPostgres(dsn) {
		log.Fatal("DATABASE_URL must be a postgres URL")
	}
	if err := database.Migrate(context.Background(), dsn, *command); err != nil {
		log.Fatalf("migrate %s: %v", *command, err)
	}
}
