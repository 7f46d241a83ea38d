package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/internal/service"
	"github.com/noah-isme/acadops-api/pkg/config"
)

// devtoken prints a signed access token for local testing against the API.
func main() {
	var (
		userID   string
		role     string
		email    string
		fullName string
		branchID string
		expiry   time.Duration
	)

	flag.StringVar(&userID, "user", "dev-user", "User ID placed in the token")
	flag.StringVar(&role, "role", string(models.RoleAcademicAffairs), "ACADEMIC_AFFAIRS, CENTER_HEAD or ADMIN")
	flag.StringVar(&email, "email", "dev@acadops.local", "Email claim")
	flag.StringVar(&fullName, "name", "Dev User", "Full name claim")
	flag.StringVar(&branchID, "branch", "", "Branch claim")
	flag.DurationVar(&expiry, "expiry", 12*time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to mint tokens with production configuration")
	}

	auth := service.NewAuthService(zap.NewNop(), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})
	token, expiresAt, err := auth.IssueAccessToken(userID, models.UserRole(role), email, fullName, branchID)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", expiresAt.Format(time.RFC3339))
}
