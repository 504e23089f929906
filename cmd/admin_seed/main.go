// Command admin_seed creates the first admin account and prints a bearer
// token for it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"ledgerpay/internal/config"
	"ledgerpay/internal/logger"
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/identity"
)

const tokenTTL = 24 * time.Hour

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")
	if adminEmail == "" || adminPassword == "" || adminPhone == "" {
		log.Fatal("ADMIN_EMAIL, ADMIN_PASSWORD, and ADMIN_PHONE must be set in environment")
	}

	db, err := repositories.InitDB(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	ctx := context.Background()
	repo := repositories.NewUserRepository(db, nil)
	users := identity.NewService(repo)

	admin, err := users.Create(ctx, identity.CreateUserInput{
		Name:     config.GetEnv("ADMIN_NAME", "Administrator"),
		Email:    adminEmail,
		Password: adminPassword,
		Phone:    adminPhone,
		Role:     models.RoleAdmin,
	})
	switch {
	case errors.Is(err, identity.ErrUserExists):
		log.Info("admin user already exists")
		if admin, err = repo.GetByEmail(ctx, adminEmail); err != nil {
			log.WithError(err).Fatal("failed to load admin user")
		}
	case err != nil:
		log.WithError(err).Fatal("failed to create admin user")
	default:
		log.WithField("user_id", admin.ID).Info("admin account created")
	}

	if admin.Role != models.RoleAdmin {
		log.WithField("email", admin.Email).Fatal("existing account is not an admin")
	}

	token, err := middleware.IssueToken([]byte(cfg.JWTSecret), admin, tokenTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to issue token")
	}
	fmt.Println(token)
}
