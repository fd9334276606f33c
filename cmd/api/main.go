package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"gigmarket/internal/app"
	"gigmarket/internal/config"
	"gigmarket/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" || cfg.AppEnv == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	if database.IsPostgres(cfg.DatabaseURL) {
		if err := database.Migrate(ctx, cfg.DatabaseURL, "up"); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	} else if cfg.AutoMigrate {
		log.Println("Running AutoMigrate...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("AutoMigrate failed: %v", err)
		}
	}

	feed, err := app.NewFeed(ctx, cfg)
	if err != nil {
		log.Fatalf("realtime feed: %v", err)
	}
	defer feed.Close()

	a, err := app.New(cfg, db, feed)
	if err != nil {
		log.Fatalf("app: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("api listening on :%s", cfg.HTTPPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	a.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
