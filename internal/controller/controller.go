package controller

import (
	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Guards are the shared route middlewares. Controllers attach them per route so public routes can share a prefix.
type Guards struct {
	Auth       fiber.Handler
	Unlocked   fiber.Handler
	Admin      fiber.Handler
	SuperAdmin fiber.Handler
	Idempotent fiber.Handler
}

func passThrough(ctx *fiber.Ctx) error { return ctx.Next() }

// orPass lets tests leave guards unset.
func orPass(h fiber.Handler) fiber.Handler {
	if h == nil {
		return passThrough
	}
	return h
}

func paramUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid " + name + " format")
	}
	return id, nil
}

// bindJSON parses and validates the request body.
func bindJSON(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func bindQuery(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.QueryParser(req); err != nil {
		return apperror.BadRequest("invalid query parameters")
	}
	return serverutils.ValidateRequest(req)
}
