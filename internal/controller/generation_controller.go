package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IGenerationController interface {
	RegisterRoutes(r fiber.Router)
	Generate(ctx *fiber.Ctx) error
	ListJobs(ctx *fiber.Ctx) error
	GetJob(ctx *fiber.Ctx) error
}

type generationController struct {
	service service.IGenerationService
	guards  Guards
}

func NewGenerationController(service service.IGenerationService, guards Guards) IGenerationController {
	return &generationController{service: service, guards: guards}
}

func (c *generationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/generations", orPass(c.guards.Auth))
	h.Post("/", orPass(c.guards.Unlocked), orPass(c.guards.Idempotent), c.Generate)
	h.Get("/", c.ListJobs)
	h.Get("/:jobId", c.GetJob)
}

// Generate answers 202: the job runs on the queue and progress arrives over the websocket.
func (c *generationController) Generate(ctx *fiber.Ctx) error {
	var req dto.GenerateRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.Generate(ctx.UserContext(), auth.MustPrincipal(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Generation queued", res))
}

func (c *generationController) ListJobs(ctx *fiber.Ctx) error {
	res, err := c.service.ListJobs(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Generation jobs", res))
}

func (c *generationController) GetJob(ctx *fiber.Ctx) error {
	jobId, err := paramUUID(ctx, "jobId")
	if err != nil {
		return err
	}
	res, err := c.service.GetJob(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, jobId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Generation job", res))
}
