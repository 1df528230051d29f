// Package auth provides bcrypt password hashing and JWT minting/parsing.
// Leaf package with no domain dependencies; used by internal/domain/auth
// and internal/api/middleware.
package auth

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BCryptCost is the bcrypt work factor.
const BCryptCost = 12

// DefaultJWTExpiryHours applies when CASEFORGE_JWT_EXPIRY is unset.
const DefaultJWTExpiryHours = 24

const (
	envJWTSecret = "CASEFORGE_JWT_SECRET"
	envJWTExpiry = "CASEFORGE_JWT_EXPIRY"
)

// jwtSecret reads the signing secret from the environment. Panics when
// unset: a missing secret is a deployment error, not a request error.
func jwtSecret() []byte {
	secret := os.Getenv(envJWTSecret)
	if secret == "" {
		panic(envJWTSecret + " environment variable not set")
	}
	return []byte(secret)
}

// parseExpiry converts an hour count into a duration, falling back to the
// default on empty or invalid input.
func parseExpiry(raw string) time.Duration {
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return DefaultJWTExpiryHours * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

func jwtExpiry() time.Duration {
	return parseExpiry(os.Getenv(envJWTExpiry))
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Invalid hashes
// verify as false rather than erroring, so responses never leak hash
// format details.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims carries the caller identity inside a signed token. Permissions
// are baked in at login so dispatch never re-reads the user row.
type Claims struct {
	UserID      string   `json:"user_id"`
	WorkspaceID string   `json:"workspace_id"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT mints a signed HS256 token for the given identity.
func GenerateJWT(userID, workspaceID string, permissions []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiry())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseJWT validates a token and extracts its claims. The signing method
// is pinned to HMAC to rule out algorithm substitution.
func ParseJWT(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
