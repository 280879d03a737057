package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the JWT payload minted by the external
// identity service. This module only extracts the subject id and an
// optional seller shop binding.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"uid"`
	ShopID *uuid.UUID `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}
