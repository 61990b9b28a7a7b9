package middlewares

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CreateJWT issues an HMAC-signed token for a client of the staging API.
func CreateJWT(subject string, jwtSecret []byte, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "venus",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}
