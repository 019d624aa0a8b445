// Package main provides account management utilities for the approvals service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"approvals/internal/cache"
	"approvals/internal/config"
	"approvals/internal/database"
	"approvals/internal/models"
	"approvals/internal/service"
	"approvals/internal/workflow"

	"gorm.io/gorm"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin/main.go assign-role <email> <role>   - Change an account's role")
	fmt.Println("  go run ./cmd/admin/main.go activate <email>             - Allow an account to sign in")
	fmt.Println("  go run ./cmd/admin/main.go deactivate <email>           - Block an account from signing in")
	fmt.Println("  go run ./cmd/admin/main.go set-password <email> <pass>  - Reset an account's password")
	fmt.Println("  go run ./cmd/admin/main.go list [role]                  - List accounts")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Cached accounts must be dropped after an edit so the API sees the change.
	cache.InitRedis(cfg.RedisURL)

	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "assign-role":
		requireArgs(args, 2)
		role, ok := workflow.ParseRole(args[1])
		if !ok {
			log.Fatalf("Unknown role %q", args[1])
		}
		updateUser(ctx, db, args[0], func(u *models.User) (string, error) {
			if u.Role == role {
				return fmt.Sprintf("%s already holds role %s", u.Email, role), nil
			}
			u.Role = role
			return fmt.Sprintf("✅ %s now holds role %s", u.Email, role), nil
		})

	case "activate", "deactivate":
		requireArgs(args, 1)
		active := os.Args[1] == "activate"
		updateUser(ctx, db, args[0], func(u *models.User) (string, error) {
			u.IsActive = active
			return fmt.Sprintf("✅ %s active=%t", u.Email, active), nil
		})

	case "set-password":
		requireArgs(args, 2)
		updateUser(ctx, db, args[0], func(u *models.User) (string, error) {
			hash, err := service.HashPassword(args[1])
			if err != nil {
				return "", err
			}
			u.Password = hash
			return fmt.Sprintf("✅ password reset for %s", u.Email), nil
		})

	case "list":
		role := ""
		if len(args) > 0 {
			role = args[0]
		}
		listUsers(ctx, db, role)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func requireArgs(args []string, n int) {
	if len(args) < n {
		printUsage()
		os.Exit(1)
	}
}

func updateUser(ctx context.Context, db *gorm.DB, email string, mutate func(*models.User) (string, error)) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with email %s not found\n", email)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	msg, err := mutate(&user)
	if err != nil {
		log.Fatalf("Failed to update %s: %v", email, err)
	}
	if err := db.WithContext(ctx).Save(&user).Error; err != nil {
		log.Fatalf("Failed to save %s: %v", email, err)
	}
	cache.InvalidateUser(ctx, user.ID)
	fmt.Println(msg)
}

func listUsers(ctx context.Context, db *gorm.DB, role string) {
	q := db.WithContext(ctx).Order("role, email")
	if role != "" {
		q = q.Where("role = ?", strings.ToLower(role))
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		log.Fatalf("Failed to fetch users: %v", err)
	}
	if len(users) == 0 {
		fmt.Println("No accounts found")
		return
	}

	fmt.Println("\n📋 Accounts:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range users {
		fmt.Printf("ID: %d | %s | %s | role=%s | active=%t\n", u.ID, u.Email, u.Name, u.Role, u.IsActive)
	}
	fmt.Println("─────────────────────────────────────")
}
