package serverutils

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type stubResolver struct {
	principal *auth.Principal
}

func (s *stubResolver) ResolvePrincipal(_ context.Context, claims *auth.Claims) (*auth.Principal, error) {
	p := *s.principal
	p.UserID = claims.Subject
	return &p, nil
}

func signedToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newAuthApp(principal *auth.Principal, guards ...fiber.Handler) *fiber.App {
	log := logger.NewNopLogger()
	app := fiber.New()
	handlers := []fiber.Handler{AuthMiddleware(auth.NewHMACVerifier(testSecret), &stubResolver{principal: principal}, log)}
	handlers = append(handlers, guards...)
	handlers = append(handlers, func(ctx *fiber.Ctx) error {
		p := auth.MustPrincipal(ctx)
		return ctx.JSON(SuccessResponse("ok", p.UserID.String()))
	})
	app.Get("/me", handlers...)
	return app
}

func decodeBody(t *testing.T, body io.Reader) BaseResponse[any] {
	t.Helper()
	var resp BaseResponse[any]
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	t.Run("missing token", func(t *testing.T) {
		app := newAuthApp(&auth.Principal{Role: auth.RoleUser})
		resp, err := app.Test(httptest.NewRequest("GET", "/me", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		app := newAuthApp(&auth.Principal{Role: auth.RoleUser})
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("valid token sets principal", func(t *testing.T) {
		app := newAuthApp(&auth.Principal{Role: auth.RoleUser})
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, userID))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body := decodeBody(t, resp.Body)
		assert.Equal(t, userID.String(), body.Data)
	})

	t.Run("query token accepted", func(t *testing.T) {
		app := newAuthApp(&auth.Principal{Role: auth.RoleUser})
		resp, err := app.Test(httptest.NewRequest("GET", "/me?token="+signedToken(t, userID), nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("banned principal rejected", func(t *testing.T) {
		app := newAuthApp(&auth.Principal{Role: auth.RoleUser, IsBanned: true})
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, userID))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.StatusCode)
		assert.Equal(t, "ACCOUNT_BANNED", decodeBody(t, resp.Body).ErrorCode)
	})
}

func TestRoleGuards(t *testing.T) {
	log := logger.NewNopLogger()
	userID := uuid.New()

	tests := []struct {
		name      string
		principal *auth.Principal
		guard     fiber.Handler
		status    int
	}{
		{name: "user blocked from admin", principal: &auth.Principal{Role: auth.RoleUser}, guard: RequireAdmin(log), status: 403},
		{name: "admin passes admin", principal: &auth.Principal{Role: auth.RoleAdmin}, guard: RequireAdmin(log), status: 200},
		{name: "admin blocked from super admin", principal: &auth.Principal{Role: auth.RoleAdmin}, guard: RequireSuperAdmin(log), status: 403},
		{name: "super admin passes", principal: &auth.Principal{Role: auth.RoleSuperAdmin}, guard: RequireSuperAdmin(log), status: 200},
		{name: "locked user cannot spend", principal: &auth.Principal{Role: auth.RoleUser, IsLocked: true}, guard: RequireUnlocked(log), status: 403},
		{name: "unlocked user can spend", principal: &auth.Principal{Role: auth.RoleUser}, guard: RequireUnlocked(log), status: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAuthApp(tt.principal, tt.guard)
			req := httptest.NewRequest("GET", "/me", nil)
			req.Header.Set("Authorization", "Bearer "+signedToken(t, userID))
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
