package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload: standard claims plus user identity.
// The subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// Identity is what a verified access token asserts about its bearer.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Roles  []rbac.Role
}

// GenerateAccessToken signs an HS256 token for identity, valid for ttl from now.
// Empty roles default to USER.
func GenerateAccessToken(id Identity, secretKey []byte, ttl time.Duration, now time.Time) (string, error) {
	roles := id.Roles
	if len(roles) == 0 {
		roles = []rbac.Role{rbac.RoleUser}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
		Name:  id.Name,
		Roles: rbac.Strings(roles),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken verifies signature and expiry.
func ParseAccessToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Roles:  rbac.ParseRoles(claims.Roles),
	}, nil
}
