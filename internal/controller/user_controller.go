package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	GetCredits(ctx *fiber.Ctx) error
	ListTransactions(ctx *fiber.Ctx) error
	Quote(ctx *fiber.Ctx) error
}

type userController struct {
	profiles service.IProfileService
	credits  service.ICreditService
	guards   Guards
}

func NewUserController(profiles service.IProfileService, credits service.ICreditService, guards Guards) IUserController {
	return &userController{profiles: profiles, credits: credits, guards: guards}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	authed := orPass(c.guards.Auth)

	r.Get("/profile", authed, c.GetProfile)
	r.Put("/profile", authed, c.UpdateProfile)

	r.Get("/credits", authed, c.GetCredits)
	r.Get("/credits/transactions", authed, c.ListTransactions)
	r.Post("/credits/quote", authed, c.Quote)
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	res, err := c.profiles.GetProfile(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile", res))
}

func (c *userController) UpdateProfile(ctx *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.profiles.UpdateProfile(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile updated", res))
}

func (c *userController) GetCredits(ctx *fiber.Ctx) error {
	res, err := c.credits.GetCredits(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credits", res))
}

func (c *userController) ListTransactions(ctx *fiber.Ctx) error {
	var req dto.CreditTransactionListRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	res, err := c.credits.ListTransactions(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credit transactions", res))
}

func (c *userController) Quote(ctx *fiber.Ctx) error {
	var req dto.QuoteRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.credits.Quote(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Quote", res))
}
