package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"gigmarket/internal/config"
	jwtsvc "gigmarket/internal/pkg/jwt"
)

// devtoken prints a bearer token for local testing. Identity is owned by an
// external auth service in production.
func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 0, "user id to embed in the token")
	email := flag.String("email", "", "optional email claim")
	role := flag.String("role", "user", "role claim")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("-user must be > 0")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(*userID, *email, *role)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}
