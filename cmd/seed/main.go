package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding-planner/internal/auth"
	"wedding-planner/internal/config"
	"wedding-planner/internal/models"
	"wedding-planner/internal/storage"
)

// Seeds an organizer account for the dashboard. Accounts have no public
// signup flow; this is the only way to create one.
func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "seed").Logger()

	username := flag.String("username", "", "organizer username (required)")
	password := flag.String("password", "", "organizer password (required)")
	displayName := flag.String("name", "Admin User", "display name")
	role := flag.String("role", "admin", "account role")
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}

	store, err := storage.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage")
	}
	defer store.Close()

	ctx := context.Background()

	existing, err := store.GetUserByUsername(ctx, *username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Fatal().Err(err).Msg("Error looking up user")
	}
	if existing != nil {
		if err := store.UpdateUserPassword(ctx, existing.ID, auth.HashPassword(*password)); err != nil {
			log.Fatal().Err(err).Msg("Error updating password")
		}
		log.Info().Str("username", *username).Msg("User already exists, password updated")
		return
	}

	user := models.DashUser{
		ID:           uuid.NewString(),
		Username:     *username,
		PasswordHash: auth.HashPassword(*password),
		DisplayName:  *displayName,
		Role:         *role,
		CreatedAt:    time.Now(),
	}
	if err := store.InsertUser(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("Error creating user")
	}

	log.Info().Str("username", *username).Str("role", *role).Msg("Organizer account created")
}
