package server

import (
	"context"

	"fanova-be/internal/bootstrap"
	"fanova-be/internal/config"
	"fanova-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		// Four base64 images of up to 5 MB each.
		BodyLimit: 30 * 1024 * 1024,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return serverutils.WriteError(ctx, container.Logger, err)
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: cfg.App.CorsAllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, Stripe-Signature",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware(otelfiber.WithServerName("fanova-backend")))
	app.Use(container.Metrics.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{"status": "up"}))
	})
	app.Get("/metrics", adaptor.HTTPHandler(container.Metrics.Handler()))

	// Local storage fallback serves generated images from here.
	app.Static("/uploads", cfg.App.UploadDir)

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("SERVER", "Listening", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.UserController.RegisterRoutes(api)
	c.PersonaController.RegisterRoutes(api)
	c.GenerationController.RegisterRoutes(api)
	c.PaymentController.RegisterRoutes(api)
	c.ReferralController.RegisterRoutes(api)
	c.AiController.RegisterRoutes(api)
	c.AdminController.RegisterRoutes(api)

	c.SocketHandler.RegisterRoutes(api)
}
