package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/auth"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

// admin-token prints a signed JWT for the back-office quote API.
//
//	go run ./cmd/admin-token -email ventas@envasesoluciones.com -role sales
func main() {
	email := flag.String("email", "", "admin email (token subject)")
	role := flag.String("role", string(enums.AdminRoleSales), "admin role: owner|sales")
	ttl := flag.Int("ttl", 0, "lifetime in minutes; defaults to ENVASES_JWT_EXPIRATION_MINUTES")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "admin-token", Output: os.Stderr})
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	token, err := mint(cfg.JWT, *email, *role, *ttl, time.Now())
	if err != nil {
		logg.Error(logg.WithFields(ctx, map[string]any{"email": *email, "role": *role}), "failed to mint admin token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(cfg config.JWTConfig, email, role string, ttlMinutes int, now time.Time) (string, error) {
	parsed, err := enums.ParseAdminRole(role)
	if err != nil {
		return "", err
	}
	if ttlMinutes > 0 {
		cfg.ExpirationMinutes = ttlMinutes
	}
	return auth.MintAdminToken(cfg, now, auth.AdminTokenPayload{Email: email, Role: parsed})
}
