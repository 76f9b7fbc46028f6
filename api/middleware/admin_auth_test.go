package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/auth"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.AdminRole) string {
	t.Helper()
	token, err := auth.MintAdminToken(cfg, time.Now(), auth.AdminTokenPayload{Email: "ventas@envases.com", Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	handler := AdminAuth(testJWT(), nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAdminAuthRejectsInvalidToken(t *testing.T) {
	handler := AdminAuth(testJWT(), nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAdminAuthAllowsValidToken(t *testing.T) {
	cfg := testJWT()
	token := mintTestToken(t, cfg, enums.AdminRoleSales)

	var email, role string
	handler := AdminAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email = AdminEmailFromContext(r.Context())
		role = AdminRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if email != "ventas@envases.com" || role != string(enums.AdminRoleSales) {
		t.Fatalf("unexpected context %q %q", email, role)
	}
}

func TestRequireAdminRole(t *testing.T) {
	cfg := testJWT()
	chain := func(role enums.AdminRole) int {
		handler := AdminAuth(cfg, nil)(RequireAdminRole(nil, enums.AdminRoleOwner)(okHandler()))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := chain(enums.AdminRoleOwner); got != http.StatusOK {
		t.Fatalf("expected owner to pass, got %d", got)
	}
	if got := chain(enums.AdminRoleSales); got != http.StatusForbidden {
		t.Fatalf("expected sales to be forbidden, got %d", got)
	}
}
