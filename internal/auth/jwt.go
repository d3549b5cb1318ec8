package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims carries the authenticated username inside an API token
type Claims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// GenerateJWT issues a signed Bearer token for the JSON API
func GenerateJWT(jwtKey []byte, username string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ParseJWT validates a token string and returns its claims
func ParseJWT(jwtKey []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
