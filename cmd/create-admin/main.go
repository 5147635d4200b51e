package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/database"
	"github.com/stemsi/speaking-backend/internal/logger"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Registration never issues a token, so the signing key is unused here.
	authService := service.NewAuthService(
		repository.NewUserRepository(pool),
		service.NewPasswordHasher(cfg.BcryptCost),
		service.NewTokenService(cfg.JWTSecret, time.Minute),
		log,
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	fmt.Println("=== Create New Admin User ===")

	req := &model.RegisterRequest{Role: model.RoleAdmin}
	if req.Name = prompt("Enter Name: "); req.Name == "" {
		fmt.Println("Error: Name is required")
		os.Exit(1)
	}
	if req.Email = prompt("Enter Email: "); req.Email == "" {
		fmt.Println("Error: Email is required")
		os.Exit(1)
	}
	if req.Phone = prompt("Enter Phone: "); req.Phone == "" {
		fmt.Println("Error: Phone is required")
		os.Exit(1)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	req.Password = string(bytePassword)
	if len(req.Password) < 6 || len(req.Password) > 72 {
		fmt.Println("Error: Password must be 6 to 72 characters")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := authService.Register(ctx, req)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		fmt.Println("Error: a user with this email already exists")
		os.Exit(1)
	case errors.Is(err, service.ErrPhoneTaken):
		fmt.Println("Error: a user with this phone already exists")
		os.Exit(1)
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %d\n", user.Name, user.Email, user.ID)
}
