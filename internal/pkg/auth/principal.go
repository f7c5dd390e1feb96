package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const principalKey = "principal"

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Principal is the authenticated caller as resolved against their profile.
type Principal struct {
	UserID   uuid.UUID
	Email    string
	Role     Role
	IsBanned bool
	IsLocked bool
}

func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

func (p *Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// SetPrincipal stores the principal, and the plain user id under "user_id" for middleware that only needs that.
func SetPrincipal(ctx *fiber.Ctx, p *Principal) {
	ctx.Locals(principalKey, p)
	ctx.Locals("user_id", p.UserID.String())
}

func PrincipalFrom(ctx *fiber.Ctx) (*Principal, bool) {
	p, ok := ctx.Locals(principalKey).(*Principal)
	return p, ok && p != nil
}

// MustPrincipal is for handlers mounted behind the auth middleware.
func MustPrincipal(ctx *fiber.Ctx) *Principal {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		panic("auth: handler reached without principal")
	}
	return p
}
