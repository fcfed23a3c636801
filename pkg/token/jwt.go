package token

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set participant role
type RoleType string

const (
	// RoleAdmin is the site owner
	RoleAdmin RoleType = "admin"
	// RoleVisitor is a signed-in visitor
	RoleVisitor RoleType = "visitor"
)

// Claims structure for custom claims in JWT
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var (
	secretMu        sync.RWMutex
	jwtSecret       = []byte("secure_secret_key")
	tokenExpiration = 60 * time.Minute
)

// SetSecret replace the signing key, empty value keeps the current one
func SetSecret(secret string) {
	if secret == "" {
		return
	}
	secretMu.Lock()
	defer secretMu.Unlock()
	jwtSecret = []byte(secret)
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// GenerateJWT generates a JWT token
func GenerateJWT(email, name string, role RoleType, issuer string) (string, error) {
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			Subject:   email,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret())
}

// ParseJWT parses a JWT and extracts the Claims
func ParseJWT(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Email == "" {
		return nil, errors.New("token has no email")
	}

	return claims, nil
}

// ResolveRole admin when the claim says so or the email is the configured admin email
func ResolveRole(c *Claims, adminEmail string) RoleType {
	if RoleType(c.Role) == RoleAdmin {
		return RoleAdmin
	}
	if adminEmail != "" && strings.EqualFold(c.Email, adminEmail) {
		return RoleAdmin
	}
	return RoleVisitor
}
