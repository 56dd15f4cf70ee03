package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Config holds JWT configuration
type Config struct {
	SigningKey      string
	ExpirationHours int
}

var cfg *Config

// Initialize sets the package configuration
func Initialize(config *Config) {
	cfg = config
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Email      string `json:"email"`
	UserID     uint   `json:"user_id"`
	IsAdmin    bool   `json:"is_admin,omitempty"`    // platform-wide admin flag
	TenantID   *uint  `json:"tenant_id,omitempty"`   // selected tenant context
	TenantName string `json:"tenant_name,omitempty"` // selected tenant name for convenience
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token with user information
func GenerateToken(email string, userID uint, isAdmin bool) (string, error) {
	return GenerateTokenWithTenant(email, userID, isAdmin, nil, "")
}

// GenerateTokenWithTenant creates a JWT token with user and tenant information
func GenerateTokenWithTenant(email string, userID uint, isAdmin bool, tenantID *uint, tenantName string) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:      email,
		UserID:     userID,
		IsAdmin:    isAdmin,
		TenantID:   tenantID,
		TenantName: tenantName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.SigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
