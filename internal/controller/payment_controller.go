package controller

import (
	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	GetPricing(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
	ProcessPaymentCompletion(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
	BillingPortal(ctx *fiber.Ctx) error
	CancelSubscription(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
	guards  Guards
}

func NewPaymentController(service service.IPaymentService, guards Guards) IPaymentController {
	return &paymentController{service: service, guards: guards}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	authed := orPass(c.guards.Auth)

	r.Get("/pricing", c.GetPricing)

	h := r.Group("/stripe")
	h.Post("/webhook", c.Webhook)

	// Protected Routes
	h.Post("/create-checkout-session", authed, orPass(c.guards.Idempotent), c.Checkout)
	h.Post("/process-payment-completion", authed, c.ProcessPaymentCompletion)
	h.Get("/subscription-status", authed, c.GetStatus)
	h.Post("/billing-portal", authed, c.BillingPortal)
	h.Post("/cancel-subscription", authed, c.CancelSubscription)
}

func (c *paymentController) GetPricing(ctx *fiber.Ctx) error {
	res, err := c.service.GetPricing(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pricing", res))
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.CreateCheckoutSession(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout session created", res))
}

// Webhook verifies the signature over the raw body, so the body must not be parsed first.
func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	payload := append([]byte(nil), ctx.Body()...)
	if err := c.service.HandleWebhook(ctx.UserContext(), payload, ctx.Get("Stripe-Signature")); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"received": true})
}

func (c *paymentController) ProcessPaymentCompletion(ctx *fiber.Ctx) error {
	var req dto.ProcessPaymentRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.ProcessPaymentCompletion(ctx.UserContext(), auth.MustPrincipal(ctx).UserID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment processed", res))
}

func (c *paymentController) GetStatus(ctx *fiber.Ctx) error {
	res, err := c.service.GetSubscriptionStatus(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription status", res))
}

func (c *paymentController) BillingPortal(ctx *fiber.Ctx) error {
	res, err := c.service.CreateBillingPortal(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Billing portal", res))
}

func (c *paymentController) CancelSubscription(ctx *fiber.Ctx) error {
	res, err := c.service.CancelSubscription(ctx.UserContext(), auth.MustPrincipal(ctx).UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription will cancel at period end", res))
}
