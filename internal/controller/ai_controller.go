package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAiController interface {
	RegisterRoutes(r fiber.Router)
	AnalyzeImages(ctx *fiber.Ctx) error
	GeneratePrompt(ctx *fiber.Ctx) error
	EnhancePrompt(ctx *fiber.Ctx) error
}

type aiController struct {
	service service.IAiService
	guards  Guards
}

func NewAiController(service service.IAiService, guards Guards) IAiController {
	return &aiController{service: service, guards: guards}
}

func (c *aiController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai", orPass(c.guards.Auth))
	h.Post("/analyze-images", c.AnalyzeImages)
	h.Post("/generate-prompt", c.GeneratePrompt)
	h.Post("/enhance-prompt", c.EnhancePrompt)
}

func (c *aiController) AnalyzeImages(ctx *fiber.Ctx) error {
	var req dto.AnalyzeImagesRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.AnalyzeImages(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Images analyzed", res))
}

func (c *aiController) GeneratePrompt(ctx *fiber.Ctx) error {
	var req dto.GeneratePromptRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.GeneratePrompt(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Prompt generated", res))
}

func (c *aiController) EnhancePrompt(ctx *fiber.Ctx) error {
	var req dto.EnhancePromptRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.EnhancePrompt(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Prompt enhanced", res))
}
