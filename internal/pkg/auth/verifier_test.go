package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestHMACVerifier_Valid(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "Ada@Example.com",
		"role":  "authenticated",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := NewHMACVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestHMACVerifier_Rejects(t *testing.T) {
	userID := uuid.New().String()
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		secret string
		claims jwt.MapClaims
	}{
		{name: "wrong secret", secret: "another-secret-value-that-is-long-enough", claims: jwt.MapClaims{"sub": userID, "aud": "authenticated", "exp": future}},
		{name: "expired", secret: testSecret, claims: jwt.MapClaims{"sub": userID, "aud": "authenticated", "exp": time.Now().Add(-time.Hour).Unix()}},
		{name: "missing exp", secret: testSecret, claims: jwt.MapClaims{"sub": userID, "aud": "authenticated"}},
		{name: "wrong audience", secret: testSecret, claims: jwt.MapClaims{"sub": userID, "aud": "anon", "exp": future}},
		{name: "subject not uuid", secret: testSecret, claims: jwt.MapClaims{"sub": "service", "aud": "authenticated", "exp": future}},
	}

	v := NewHMACVerifier(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(signToken(t, tt.secret, tt.claims))
			assert.Error(t, err)
		})
	}
}

func TestNewVerifier_RequiresKeySource(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.ErrorIs(t, err, ErrNoKeySource)
}
