package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/menucraft/api/internal/config"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/service"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	tenant := flag.String("tenant", "", "Restaurant (tenant) ID")
	restaurant := flag.String("restaurant", "", "Restaurant display name")
	email := flag.String("email", "", "Owner email address")
	password := flag.String("password", "", "Owner password")
	name := flag.String("name", "", "Owner full name")
	flag.Parse()

	// Fall back to environment variables
	if *tenant == "" {
		*tenant = os.Getenv("SEED_TENANT")
	}
	if *restaurant == "" {
		*restaurant = os.Getenv("SEED_RESTAURANT")
	}
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	// Fall back to defaults
	if *tenant == "" {
		*tenant = "demo"
	}
	if *restaurant == "" {
		*restaurant = "MenuCraft Demo Kitchen"
	}
	if *email == "" {
		*email = "admin@menucraft.local"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "MenuCraft Admin"
	}

	*email = strings.ToLower(strings.TrimSpace(*email))

	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction (atomicity: both settings + user or neither)
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	qtx := database.New(tx)

	if err := seedSettings(ctx, qtx, *tenant, *restaurant); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	userID, err := seedOwner(ctx, qtx, *tenant, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed owner: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Tenant: %s", *tenant)
	log.Printf("Owner ID: %s", userID)
}

// seedSettings stores the default restaurant profile if the tenant has none.
func seedSettings(ctx context.Context, q *database.Queries, tenantID, restaurant string) error {
	_, err := q.GetSettings(ctx, tenantID)
	if err == nil {
		log.Printf("Settings for '%s' already exist, skipping", tenantID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check settings: %w", err)
	}

	settings := service.DefaultSettings(tenantID)
	settings.Name = restaurant
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if _, err := q.UpsertSettings(ctx, database.UpsertSettingsParams{TenantID: tenantID, Data: data}); err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}

	log.Printf("Created settings for '%s' (%s)", tenantID, restaurant)
	return nil
}

// seedOwner creates the owner user if it doesn't exist.
func seedOwner(ctx context.Context, q *database.Queries, tenantID, email, password, fullName string) (uuid.UUID, error) {
	existing, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existing.ID)
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	// Hash password
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := q.CreateUser(ctx, database.CreateUserParams{
		TenantID:       tenantID,
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           enum.UserRoleOwner,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	log.Printf("Created owner user '%s' (ID: %s)", email, user.ID)
	return user.ID, nil
}
