package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "envases-y-soluciones",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAdminToken(cfg, now, AdminTokenPayload{Email: " Ventas@Envases.com ", Role: enums.AdminRoleSales})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.Email != "ventas@envases.com" || claims.Subject != "ventas@envases.com" {
		t.Fatalf("unexpected subject %q / %q", claims.Email, claims.Subject)
	}
	if claims.Role != enums.AdminRoleSales {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.UTC())
	}
}

func TestParseAdminTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{Email: "a@b.co", Role: enums.AdminRoleOwner})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAdminToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now().Add(-time.Hour), AdminTokenPayload{Email: "a@b.co", Role: enums.AdminRoleOwner})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	_, err = ParseAdminToken(cfg, token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiration error, got %v", err)
	}
}

func TestMintAdminTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{Email: "a@b.co", Role: "root"}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAdminToken(cfg, time.Now(), AdminTokenPayload{Email: " ", Role: enums.AdminRoleOwner}); err == nil {
		t.Fatal("expected missing email error")
	}
}

func TestParseAdminTokenRejectsUnknownRole(t *testing.T) {
	cfg := testJWTConfig()
	claims := AdminClaims{
		Email: "a@b.co",
		Role:  "member",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAdminToken(cfg, signed); err == nil {
		t.Fatal("expected role rejection")
	}
}
