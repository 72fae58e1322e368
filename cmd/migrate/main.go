package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/tanveerk/finhub/internal/logger"
	"github.com/tanveerk/finhub/internal/store"
)

// Applies the schema and optionally seeds a login:
//
//	migrate -db data/finhub.db -email tanveer@example.com -password secret
func main() {
	var (
		dbPath   = flag.String("db", envOr("DB_PATH", "data/finhub.db"), "SQLite database path (or set DB_PATH env)")
		email    = flag.String("email", "", "Seed a user with this email (optional)")
		password = flag.String("password", "", "Password for the seeded user")
	)
	flag.Parse()

	log := logger.New()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dbPath).Msg("Failed to open database")
	}
	defer st.Close()

	if err := st.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}
	log.Info().Str("path", *dbPath).Msg("Schema applied")

	if *email == "" {
		return
	}
	if *password == "" {
		log.Fatal().Msg("-password is required when seeding a user")
	}

	ctx := context.Background()
	if _, err := st.GetUserByEmail(ctx, *email); err == nil {
		log.Info().Str("email", *email).Msg("User already exists, skipping seed")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Fatal().Err(err).Msg("User lookup failed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Hashing password failed")
	}

	user, err := st.CreateUser(ctx, *email, string(hash))
	if err != nil {
		log.Fatal().Err(err).Msg("Creating user failed")
	}
	log.Info().Int64("id", user.ID).Str("email", user.Email).Msg("User created")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
