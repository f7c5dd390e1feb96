package serverutils

import (
	"context"
	"strings"

	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// PrincipalResolver turns verified claims into a principal, creating the profile on first sight.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims *auth.Claims) (*auth.Principal, error)
}

// BearerToken reads the Authorization header. Websocket upgrades may pass ?token= instead.
func BearerToken(ctx *fiber.Ctx) string {
	header := ctx.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ctx.Query("token")
}

func AuthMiddleware(verifier auth.Verifier, resolver PrincipalResolver, log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := BearerToken(ctx)
		if token == "" {
			return WriteError(ctx, log, apperror.Unauthorized("missing bearer token"))
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			return WriteError(ctx, log, apperror.Unauthorized("invalid or expired token"))
		}

		principal, err := resolver.ResolvePrincipal(ctx.UserContext(), claims)
		if err != nil {
			return WriteError(ctx, log, err)
		}
		if principal.IsBanned {
			return WriteError(ctx, log, apperror.ErrAccountBanned)
		}

		auth.SetPrincipal(ctx, principal)
		return ctx.Next()
	}
}

// RequireUnlocked guards spending routes. Locked accounts may still read.
func RequireUnlocked(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		p, ok := auth.PrincipalFrom(ctx)
		if !ok {
			return WriteError(ctx, log, apperror.Unauthorized("authentication required"))
		}
		if p.IsLocked {
			return WriteError(ctx, log, apperror.ErrAccountLocked)
		}
		return ctx.Next()
	}
}

func RequireAdmin(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		p, ok := auth.PrincipalFrom(ctx)
		if !ok {
			return WriteError(ctx, log, apperror.Unauthorized("authentication required"))
		}
		if !p.IsAdmin() {
			return WriteError(ctx, log, apperror.Forbidden("admin access required"))
		}
		return ctx.Next()
	}
}

func RequireSuperAdmin(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		p, ok := auth.PrincipalFrom(ctx)
		if !ok {
			return WriteError(ctx, log, apperror.Unauthorized("authentication required"))
		}
		if !p.IsSuperAdmin() {
			return WriteError(ctx, log, apperror.Forbidden("super admin access required"))
		}
		return ctx.Next()
	}
}
