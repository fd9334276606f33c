package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"gigmarket/internal/database"
	"gigmarket/internal/domain"
)

func main() {
	_ = godotenv.Load()

	days := flag.Int("read-older-than", 30, "delete read notifications older than this many days")
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if *days <= 0 {
		log.Fatal("-read-older-than must be > 0")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -*days)
	res := db.Where("is_read = ? AND created_at < ?", true, cutoff).Delete(&domain.Notification{})
	if res.Error != nil {
		log.Fatalf("cleanup notifications failed: %v", res.Error)
	}

	log.Printf("notification cleanup completed: deleted=%d cutoff=%s", res.RowsAffected, cutoff.Format(time.RFC3339))
}
