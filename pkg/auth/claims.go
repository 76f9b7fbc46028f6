package auth

import (
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AdminTokenPayload captures the data available when minting a back-office JWT.
type AdminTokenPayload struct {
	Email string
	Role  enums.AdminRole
	JTI   string
}

// AdminClaims is the typed JWT accepted by the admin API.
type AdminClaims struct {
	Email string          `json:"email"`
	Role  enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
