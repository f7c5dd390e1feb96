package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)

	// User Management
	ListUsers(ctx *fiber.Ctx) error
	GetUser(ctx *fiber.Ctx) error
	BanUser(ctx *fiber.Ctx) error
	UnbanUser(ctx *fiber.Ctx) error
	LockUser(ctx *fiber.Ctx) error
	UnlockUser(ctx *fiber.Ctx) error
	UpdateUser(ctx *fiber.Ctx) error
	DeleteUser(ctx *fiber.Ctx) error

	// Admin Management
	ListAdmins(ctx *fiber.Ctx) error
	GrantAdmin(ctx *fiber.Ctx) error
	RevokeAdmin(ctx *fiber.Ctx) error
	Bootstrap(ctx *fiber.Ctx) error

	GetStats(ctx *fiber.Ctx) error
	ListActions(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
	guards  Guards
}

func NewAdminController(service service.IAdminService, guards Guards) IAdminController {
	return &adminController{service: service, guards: guards}
}

// admin prefixes handler with the auth and admin guards; super adds the super admin guard.
func (c *adminController) admin(handler fiber.Handler) []fiber.Handler {
	return []fiber.Handler{orPass(c.guards.Auth), orPass(c.guards.Admin), handler}
}

func (c *adminController) super(handler fiber.Handler) []fiber.Handler {
	return []fiber.Handler{orPass(c.guards.Auth), orPass(c.guards.Admin), orPass(c.guards.SuperAdmin), handler}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")

	// Any signed-in user may try; the service refuses once an admin exists.
	h.Post("/bootstrap", orPass(c.guards.Auth), c.Bootstrap)

	h.Get("/users", c.admin(c.ListUsers)...)
	h.Get("/users/:id", c.admin(c.GetUser)...)
	h.Put("/users/:id", c.admin(c.UpdateUser)...)
	h.Delete("/users/:id", c.admin(c.DeleteUser)...)
	h.Post("/users/:id/ban", c.admin(c.BanUser)...)
	h.Post("/users/:id/unban", c.admin(c.UnbanUser)...)
	h.Post("/users/:id/lock", c.admin(c.LockUser)...)
	h.Post("/users/:id/unlock", c.admin(c.UnlockUser)...)

	h.Get("/admins", c.super(c.ListAdmins)...)
	h.Post("/admins", c.super(c.GrantAdmin)...)
	h.Delete("/admins/:id", c.super(c.RevokeAdmin)...)

	h.Get("/stats", c.admin(c.GetStats)...)
	h.Get("/actions", c.admin(c.ListActions)...)
	h.Get("/logs", c.admin(c.GetLogs)...)
}

func (c *adminController) ListUsers(ctx *fiber.Ctx) error {
	var req dto.AdminUserListRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.ListUsers(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User list", res))
}

func (c *adminController) GetUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.GetUser(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User detail", res))
}

func (c *adminController) BanUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.AdminReasonRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.BanUser(ctx.UserContext(), auth.MustPrincipal(ctx), id, req.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User banned", res))
}

func (c *adminController) UnbanUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.UnbanUser(ctx.UserContext(), auth.MustPrincipal(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User unbanned", res))
}

func (c *adminController) LockUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.AdminReasonRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.LockUser(ctx.UserContext(), auth.MustPrincipal(ctx), id, req.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User locked", res))
}

func (c *adminController) UnlockUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.UnlockUser(ctx.UserContext(), auth.MustPrincipal(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User unlocked", res))
}

func (c *adminController) UpdateUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.AdminUpdateUserRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateUser(ctx.UserContext(), auth.MustPrincipal(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User updated", res))
}

func (c *adminController) DeleteUser(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	if err := c.service.DeleteUser(ctx.UserContext(), auth.MustPrincipal(ctx), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("User deleted", nil))
}

func (c *adminController) ListAdmins(ctx *fiber.Ctx) error {
	res, err := c.service.ListAdmins(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Admins", res))
}

func (c *adminController) GrantAdmin(ctx *fiber.Ctx) error {
	var req dto.GrantAdminRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.GrantAdmin(ctx.UserContext(), auth.MustPrincipal(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Admin granted", res))
}

func (c *adminController) RevokeAdmin(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	if err := c.service.RevokeAdmin(ctx.UserContext(), auth.MustPrincipal(ctx), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Admin revoked", nil))
}

func (c *adminController) Bootstrap(ctx *fiber.Ctx) error {
	var req dto.BootstrapAdminRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.Bootstrap(ctx.UserContext(), auth.MustPrincipal(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Super admin created", res))
}

func (c *adminController) GetStats(ctx *fiber.Ctx) error {
	res, err := c.service.GetStats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Dashboard stats", res))
}

func (c *adminController) ListActions(ctx *fiber.Ctx) error {
	var req dto.AdminActionListRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	items, total, err := c.service.ListActions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Admin actions", fiber.Map{
		"items": items,
		"total": total,
	}))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	var req dto.LogListRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.GetLogs(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Logs", res))
}
