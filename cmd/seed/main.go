// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"

	"auth-control-plane/backend/internal/config"
	"auth-control-plane/backend/internal/db"
	"auth-control-plane/backend/internal/security"

	roledomain "auth-control-plane/backend/internal/role/domain"
	rolerepo "auth-control-plane/backend/internal/role/repository"
	roleservice "auth-control-plane/backend/internal/role/service"
	userrepo "auth-control-plane/backend/internal/user/repository"
	userservice "auth-control-plane/backend/internal/user/service"
)

const (
	adminEmail  = "admin@example.com"
	memberEmail = "member@example.com"
	devPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	users := userservice.NewUserService(userrepo.NewPostgresRepository(pool), security.NewHasher(cfg.BcryptCost))
	roles := roleservice.NewRoleService(rolerepo.NewPostgresRepository(pool))

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (admin@example.com exists). Skipping.")
		os.Exit(0)
	}

	if err := roles.SeedDefaults(ctx); err != nil {
		log.Fatalf("seed roles: %v", err)
	}

	adminRole, err := roles.FindByName(ctx, roledomain.NameAdmin)
	if err != nil {
		log.Fatalf("find role %s: %v", roledomain.NameAdmin, err)
	}
	userRole, err := roles.FindByName(ctx, roledomain.NameUser)
	if err != nil {
		log.Fatalf("find role %s: %v", roledomain.NameUser, err)
	}
	if adminRole == nil || userRole == nil {
		log.Fatal("default roles missing after seeding")
	}

	if _, err := users.Create(ctx, userservice.CreateInput{
		Email:     adminEmail,
		Password:  devPassword,
		FirstName: "Dev",
		LastName:  "Admin",
		RoleID:    adminRole.ID,
	}); err != nil {
		log.Fatalf("create admin user: %v", err)
	}
	if _, err := users.Create(ctx, userservice.CreateInput{
		Email:     memberEmail,
		Password:  devPassword,
		FirstName: "Dev",
		LastName:  "Member",
		RoleID:    userRole.ID,
	}); err != nil {
		log.Fatalf("create member user: %v", err)
	}

	log.Printf("Seeded dev users %s and %s (password %q)", adminEmail, memberEmail, devPassword)
}
