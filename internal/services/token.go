package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/utils"
)

// JWTIssuer implements TokenIssuer using HS256 JWTs.
type JWTIssuer struct {
	secret string
	ttl    time.Duration
}

// NewJWTIssuer constructs a JWTIssuer.
func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: secret, ttl: ttl}
}

// Issue mints a session token embedding id, email, and role claims.
func (i *JWTIssuer) Issue(userID uuid.UUID, email string, role models.Role) (string, error) {
	return utils.GenerateToken(i.secret, userID, email, string(role), i.ttl)
}
