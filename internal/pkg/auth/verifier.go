// Package auth verifies Supabase access tokens and carries the resulting principal.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultLeeway = 30 * time.Second
	// Supabase issues user tokens for this audience.
	SupabaseAudience = "authenticated"
)

var ErrNoKeySource = errors.New("auth: either a JWT secret or a JWKS URL is required")

// Claims is what the service needs from a verified access token.
type Claims struct {
	Subject   uuid.UUID
	Email     string
	FullName  string
	Role      string
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(tokenString string) (*Claims, error)
}

type jwtVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewVerifier prefers the shared HS256 secret; without one it trusts the project's JWKS.
func NewVerifier(secret, jwksURL string) (Verifier, error) {
	if secret != "" {
		return NewHMACVerifier(secret), nil
	}
	if jwksURL == "" {
		return nil, ErrNoKeySource
	}

	keyProvider, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
	}
	parser := jwt.NewParser(
		jwt.WithAudience(SupabaseAudience),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodES256.Name,
			jwt.SigningMethodRS256.Name,
		}),
	)
	return &jwtVerifier{keyfunc: keyProvider.Keyfunc, parser: parser}, nil
}

func NewHMACVerifier(secret string) Verifier {
	parser := jwt.NewParser(
		jwt.WithAudience(SupabaseAudience),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	key := []byte(secret)
	return &jwtVerifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		parser:  parser,
	}
}

func (v *jwtVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.Parse(tokenString, v.keyfunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, _ := mapClaims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.New("token subject is not a user id")
	}

	claims := &Claims{
		Subject: userID,
		Email:   strings.ToLower(readString(mapClaims, "email")),
		Role:    readString(mapClaims, "role"),
	}
	if meta, ok := mapClaims["user_metadata"].(map[string]interface{}); ok {
		claims.FullName, _ = meta["full_name"].(string)
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
