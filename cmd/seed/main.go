// seed inserts a development account for local testing.
// Idempotent: skips the insert if the dev account (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"authgate/internal/account/domain"
	"authgate/internal/account/repository"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/security"
)

const (
	devAccountID    = "dev-account-001"
	devAccountEmail = "dev@example.com"
	devAccountName  = "Dev Account"
	devPassword     = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	accounts := repository.NewPostgresRepository(conn)

	existing, err := accounts.GetByEmailForUpdate(ctx, devAccountEmail)
	if err != nil {
		log.Fatalf("seed: lookup dev account: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", devAccountEmail)
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	if err := accounts.Create(ctx, &domain.Account{
		ID:           devAccountID,
		Email:        devAccountEmail,
		Name:         devAccountName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		log.Fatalf("seed: create dev account: %v", err)
	}

	log.Printf("seed: created %s (password %q)", devAccountEmail, devPassword)
}
