package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPersonaController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UpdateAttributes(ctx *fiber.Ctx) error
	UpdateGenerationMethod(ctx *fiber.Ctx) error
	UpdateFacialFeatures(ctx *fiber.Ctx) error
	LockReference(ctx *fiber.Ctx) error
	KeepImage(ctx *fiber.Ctx) error
	ListImages(ctx *fiber.Ctx) error
}

type personaController struct {
	service service.IPersonaService
	guards  Guards
}

func NewPersonaController(service service.IPersonaService, guards Guards) IPersonaController {
	return &personaController{service: service, guards: guards}
}

func (c *personaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/models", orPass(c.guards.Auth))
	h.Post("/", c.Create)
	h.Get("/", c.List)
	h.Get("/:id", c.Get)
	h.Put("/:id", c.Update)
	h.Delete("/:id", c.Delete)

	// Wizard steps 2-4
	h.Put("/:id/attributes", c.UpdateAttributes)
	h.Put("/:id/generation-method", c.UpdateGenerationMethod)
	h.Put("/:id/facial-features", c.UpdateFacialFeatures)

	h.Post("/:id/reference", c.LockReference)
	h.Post("/:id/images", c.KeepImage)
	h.Get("/:id/images", c.ListImages)
}

func (c *personaController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateModelRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.CreateModel(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Model created", res))
}

func (c *personaController) List(ctx *fiber.Ctx) error {
	res, err := c.service.ListModels(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Models", res))
}

func (c *personaController) Get(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.GetModel(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Model", res))
}

func (c *personaController) Update(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateModelRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateModel(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Model updated", res))
}

func (c *personaController) Delete(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	if err := c.service.DeleteModel(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Model deleted", nil))
}

func (c *personaController) UpdateAttributes(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateAttributesRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateAttributes(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Attributes saved", res))
}

func (c *personaController) UpdateGenerationMethod(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateGenerationMethodRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateGenerationMethod(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Generation method saved", res))
}

func (c *personaController) UpdateFacialFeatures(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateFacialFeaturesRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateFacialFeatures(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Facial features saved", res))
}

func (c *personaController) LockReference(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.LockReferenceRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.LockReference(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Reference image locked", res))
}

func (c *personaController) KeepImage(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	var req dto.KeepImageRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.KeepImage(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Image kept", res))
}

func (c *personaController) ListImages(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.ListImages(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Images", res))
}
