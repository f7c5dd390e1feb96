package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Supabase SupabaseConfig
	Stripe   StripeConfig
	Ai       AIConfig
	Mail     MailConfig
	Admin    AdminConfig
}

type AppConfig struct {
	Port               string
	FrontendURL        string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
	PublicBaseURL      string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	JWTSecret      string
	JWKSURL        string
	StorageBucket  string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type AIConfig struct {
	GoogleAPIKey       string
	GeminiModel        string
	WavespeedAPIKey    string
	WavespeedBaseURL   string
	WavespeedModel     string
	WavespeedEditModel string
	WatermarkImagePath string
	GenerationTopic    string
}

// MailConfig targets the Resend SMTP relay by default; RESEND_API_KEY is the SMTP password.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AdminConfig struct {
	BootstrapSecretHash string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	supabaseURL := strings.TrimRight(getEnv("SUPABASE_URL", ""), "/")
	jwksURL := getEnv("SUPABASE_JWKS_URL", "")
	if jwksURL == "" && supabaseURL != "" {
		jwksURL = supabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3001"),
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
			PublicBaseURL:      getEnv("APP_BASE_URL", "http://localhost:3001"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Supabase: SupabaseConfig{
			URL:            supabaseURL,
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			JWKSURL:        jwksURL,
			StorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "model-images"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Ai: AIConfig{
			GoogleAPIKey:       getEnv("GOOGLE_API_KEY", ""),
			GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			WavespeedAPIKey:    getEnv("WAVESPEED_API_KEY", ""),
			WavespeedBaseURL:   getEnv("WAVESPEED_BASE_URL", "https://api.wavespeed.ai/api/v3"),
			WavespeedModel:     getEnv("WAVESPEED_MODEL", "bytedance/seedream-v4"),
			WavespeedEditModel: getEnv("WAVESPEED_EDIT_MODEL", "bytedance/seedream-v4/edit"),
			WatermarkImagePath: getEnv("WATERMARK_IMAGE_PATH", ""),
			GenerationTopic:    getEnv("GENERATION_TOPIC_NAME", "GENERATE_IMAGES"),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", "smtp.resend.com"),
			Port:     getEnvAsInt("SMTP_PORT", 465),
			Username: getEnv("SMTP_USERNAME", "resend"),
			Password: getEnv("RESEND_API_KEY", ""),
			From:     getEnv("MAIL_FROM", "Fanova <noreply@fanova.app>"),
		},
		Admin: AdminConfig{
			BootstrapSecretHash: getEnv("ADMIN_BOOTSTRAP_SECRET_HASH", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
