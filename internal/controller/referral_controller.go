package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IReferralController interface {
	RegisterRoutes(r fiber.Router)
	GetMyLink(ctx *fiber.Ctx) error
	GetStats(ctx *fiber.Ctx) error
	Process(ctx *fiber.Ctx) error
}

type referralController struct {
	service service.IReferralService
	guards  Guards
}

func NewReferralController(service service.IReferralService, guards Guards) IReferralController {
	return &referralController{service: service, guards: guards}
}

func (c *referralController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/referrals", orPass(c.guards.Auth))
	h.Get("/my-link", c.GetMyLink)
	h.Get("/stats", c.GetStats)
	h.Post("/process", c.Process)
}

func (c *referralController) GetMyLink(ctx *fiber.Ctx) error {
	res, err := c.service.GetMyLink(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Referral link", res))
}

func (c *referralController) GetStats(ctx *fiber.Ctx) error {
	res, err := c.service.GetStats(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Referral stats", res))
}

func (c *referralController) Process(ctx *fiber.Ctx) error {
	var req dto.ProcessReferralRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.ProcessReferral(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Referral processed", res))
}
