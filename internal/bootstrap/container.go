package bootstrap

import (
	"context"
	"log"
	"time"

	"fanova-be/internal/config"
	"fanova-be/internal/controller"
	"fanova-be/internal/handler"
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/pkg/mailer"
	"fanova-be/internal/pkg/metrics"
	"fanova-be/internal/pkg/serverutils"
	"fanova-be/internal/repository/memory"
	"fanova-be/internal/repository/unitofwork"
	"fanova-be/internal/service"
	"fanova-be/internal/websocket"
	"fanova-be/pkg/admin/dashboard"
	adminEvents "fanova-be/pkg/admin/events"
	"fanova-be/pkg/admin/user"
	"fanova-be/pkg/billing"
	"fanova-be/pkg/events"
	"fanova-be/pkg/gemini"
	pktNats "fanova-be/pkg/nats"
	"fanova-be/pkg/storage"
	"fanova-be/pkg/watermark"
	"fanova-be/pkg/wavespeed"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	UserController       controller.IUserController
	PersonaController    controller.IPersonaController
	GenerationController controller.IGenerationController
	PaymentController    controller.IPaymentController
	ReferralController   controller.IReferralController
	AdminController      controller.IAdminController
	AiController         controller.IAiController
	SocketHandler        *handler.SocketHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService
	WebSocketHub        *websocket.Hub

	Metrics *metrics.Metrics
	Logger  logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	m := metrics.New()
	c.Logger, c.Metrics = sysLogger, m

	emailService := mailer.NewEmailService(
		cfg.Mail.Host,
		cfg.Mail.Port,
		cfg.Mail.Username,
		cfg.Mail.Password,
		cfg.Mail.From,
		cfg.App.FrontendURL,
		sysLogger,
	)

	// 2. Job queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64, Persistent: false},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS. A nil bus keeps the typed nil pointer out of the interfaces below.
	var bus events.Bus
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		bus = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	var subscriber service.EventSubscriber
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		subscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}
	notifier := events.NewNotifier(bus, sysLogger)

	// Redis
	rdb := connectRedis(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)

	// Storage
	var store storage.Store
	if cfg.Supabase.URL != "" && cfg.Supabase.ServiceRoleKey != "" {
		supabaseStore, err := storage.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.StorageBucket)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize Supabase storage: %v", err)
		}
		store = supabaseStore
	} else {
		log.Printf("[INFO] Supabase storage not configured, writing images to %s", cfg.App.UploadDir)
		store = storage.NewLocalStore(cfg.App.UploadDir, cfg.App.PublicBaseURL+"/uploads")
	}

	// AI providers
	var analyzer service.ImageAnalyzer
	var composer service.PromptComposer = gemini.SheetComposer{}
	if cfg.Ai.GoogleAPIKey != "" {
		geminiClient, err := gemini.NewClient(context.Background(), cfg.Ai.GoogleAPIKey, cfg.Ai.GeminiModel)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize Gemini client: %v", err)
		}
		analyzer, composer = geminiClient, geminiClient
		c.closers = append(c.closers, func() { _ = geminiClient.Close() })
	} else {
		log.Printf("[WARN] GOOGLE_API_KEY not set, image analysis is disabled and prompts use the character sheet")
	}

	generator := wavespeed.NewClient(wavespeed.Config{
		APIKey:    cfg.Ai.WavespeedAPIKey,
		BaseURL:   cfg.Ai.WavespeedBaseURL,
		Model:     cfg.Ai.WavespeedModel,
		EditModel: cfg.Ai.WavespeedEditModel,
		Timeout:   3 * time.Minute,
	})

	watermarker, err := watermark.New(cfg.Ai.WatermarkImagePath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load watermark: %v", err)
	}

	// 4. Services
	jobs := memory.NewJobRepository()
	profileService := service.NewProfileService(uowFactory, sysLogger)
	creditService := service.NewCreditService(uowFactory)
	personaService := service.NewPersonaService(uowFactory, sysLogger)
	publisherService := service.NewPublisherService(pubSub, cfg.Ai.GenerationTopic)
	generationService := service.NewGenerationService(uowFactory, jobs, publisherService, wsHub, m, sysLogger)
	consumerService := service.NewConsumerService(service.ConsumerDeps{
		Subscriber: pubSub,
		TopicName:  cfg.Ai.GenerationTopic,
		UowFactory: uowFactory,
		Jobs:       jobs,
		Composer:   composer,
		Generator:  generator,
		Watermark:  watermarker,
		Store:      store,
		Notifier:   wsHub,
		Events:     notifier,
		Metrics:    m,
		Logger:     sysLogger,
	})

	gateway := billing.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	paymentService := service.NewPaymentService(uowFactory, gateway, cfg.App.FrontendURL, notifier, m, sysLogger)
	referralService := service.NewReferralService(uowFactory, cfg.App.FrontendURL, notifier, m, sysLogger)
	aiService := service.NewAiService(uowFactory, analyzer, composer, sysLogger)

	adminPublisher := adminEvents.NewNatsPublisher(bus, sysLogger)
	adminService := service.NewAdminService(
		uowFactory,
		sysLogger,
		user.NewManager(sysLogger, adminPublisher),
		dashboard.NewAggregator(sysLogger),
		cfg.Admin.BootstrapSecretHash,
	)

	notificationService := service.NewNotificationService(subscriber, emailService, sysLogger)

	// 5. HTTP
	verifier, err := auth.NewVerifier(cfg.Supabase.JWTSecret, cfg.Supabase.JWKSURL)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize token verifier: %v", err)
	}
	authMiddleware := serverutils.AuthMiddleware(verifier, profileService, sysLogger)
	guards := controller.Guards{
		Auth:       authMiddleware,
		Unlocked:   serverutils.RequireUnlocked(sysLogger),
		Admin:      serverutils.RequireAdmin(sysLogger),
		SuperAdmin: serverutils.RequireSuperAdmin(sysLogger),
		Idempotent: serverutils.IdempotencyMiddleware(rdb, sysLogger),
	}

	c.UserController = controller.NewUserController(profileService, creditService, guards)
	c.PersonaController = controller.NewPersonaController(personaService, guards)
	c.GenerationController = controller.NewGenerationController(generationService, guards)
	c.PaymentController = controller.NewPaymentController(paymentService, guards)
	c.ReferralController = controller.NewReferralController(referralService, guards)
	c.AdminController = controller.NewAdminController(adminService, guards)
	c.AiController = controller.NewAiController(aiService, guards)
	c.SocketHandler = handler.NewSocketHandler(wsHub, authMiddleware, sysLogger)

	c.ConsumerService = consumerService
	c.NotificationService = notificationService
	c.WebSocketHub = wsHub
	return c
}

// Start runs the background workers until ctx is canceled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if err := c.NotificationService.Start(ctx); err != nil {
		// Email is best effort; the API keeps serving without it.
		c.Logger.Warn("BOOTSTRAP", "Notification service did not start", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

// connectRedis returns nil when redis is unreachable; idempotency and cross-instance fanout are then disabled.
func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
