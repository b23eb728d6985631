package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
	"github.com/ridwanfathin/invoice-records-service/internal/middleware"
)

// Mints a bearer token for local development, signed with JWT_SECRET.
//
//	go run ./cmd/token -email admin@example.com -role admin
func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "email claim of the principal")
	role := flag.String("role", "customer", "role claim, "+domain.RoleAdmin+" or customer")
	expiry := flag.Duration("expiry", 24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret, defaults to JWT_SECRET")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}
	if *secret == "" {
		log.Fatal("no signing secret: set JWT_SECRET or pass -secret")
	}

	token, err := middleware.GenerateToken(*email, *role, *secret, *expiry)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println(token)
}
