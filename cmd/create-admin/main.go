package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/memorial-backend/internal/auth"
	"github.com/angelmondragon/memorial-backend/internal/users"
	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "create-admin"})

	_ = godotenv.Load()

	email := flag.String("email", "", "administrator email")
	name := flag.String("name", "Administrator", "display name")
	password := flag.String("password", "", "initial password")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email=<email> -password=<password> [-name=<name>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.Prepare(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to prepare schema", err)
		os.Exit(1)
	}

	svc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	admin, err := svc.CreateAdmin(ctx, auth.AdminRequest{Name: *name, Email: *email, Password: *password})
	if err != nil {
		logg.Error(ctx, "failed to create administrator", err)
		os.Exit(1)
	}
	fmt.Printf("created administrator %s (%s)\n", admin.Email, admin.ID)
}
