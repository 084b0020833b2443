package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

// Backend and provider selectors
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	QueueInline = "inline"
	QueueAsynq  = "asynq"

	LLMOpenAI = "openai"
	LLMGemini = "gemini"

	PaymentPaystack = "paystack"
	PaymentStripe   = "stripe"

	StorageS3         = "s3"
	StorageCloudinary = "cloudinary"
)

type Config struct {
	Port          int    `env:"PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:""`
	BrandName     string `env:"BRAND_NAME" envDefault:"Hugu Adventures"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`

	TwilioAccountSID        string  `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken         string  `env:"TWILIO_AUTH_TOKEN"`
	TwilioNumber            string  `env:"TWILIO_NUMBER"`
	TwilioValidateSignature bool    `env:"TWILIO_VALIDATE_SIGNATURE" envDefault:"true"`
	TwilioMessagesPerSecond float64 `env:"TWILIO_MESSAGES_PER_SECOND" envDefault:"1"`

	LLMProvider       string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel       string `env:"OPENAI_MODEL" envDefault:"gpt-4.1-mini"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"45"`

	PaymentProvider     string `env:"PAYMENT_PROVIDER" envDefault:"paystack"`
	PaystackSecretKey   string `env:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL     string `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	ItineraryAmount     int64  `env:"ITINERARY_AMOUNT" envDefault:"600"`
	ItineraryCurrency   string `env:"ITINERARY_CURRENCY" envDefault:"KES"`
	ItineraryPriceLabel string `env:"ITINERARY_PRICE_LABEL" envDefault:"$5"`
	CustomerEmailDomain string `env:"CUSTOMER_EMAIL_DOMAIN" envDefault:"huguadventures.com"`
	PaymentCallbackURL  string `env:"PAYMENT_CALLBACK_URL"`

	StorageProvider       string `env:"STORAGE_PROVIDER" envDefault:"s3"`
	AWSRegion             string `env:"AWS_REGION"`
	AWSAccessKeyID        string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey    string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Bucket              string `env:"AWS_S3_BUCKET"`
	S3BaseURL             string `env:"AWS_S3_BASE_URL"`
	CloudinaryURL         string `env:"CLOUDINARY_URL"`
	StorageTimeoutSeconds int    `env:"STORAGE_TIMEOUT_SECONDS" envDefault:"30"`

	ViatorBaseURL  string            `env:"VIATOR_AFFILIATE_BASE"`
	ViatorSuffix   string            `env:"VIATOR_AFFILIATE_SUFFIX"`
	ViatorParams   map[string]string `env:"VIATOR_AFFILIATE_PARAMS" envKeyValSeparator:"="`
	BookingBaseURL string            `env:"BOOKING_BASE_URL"`
	FlightsBaseURL string            `env:"FLIGHTS_BASE_URL"`

	SessionBackend         string   `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTLHours        int      `env:"SESSION_TTL_HOURS" envDefault:"72"`
	EditWindowHours        int      `env:"EDIT_WINDOW_HOURS" envDefault:"72"`
	DisplayTimezone        string   `env:"DISPLAY_TIMEZONE" envDefault:"Africa/Nairobi"`
	KnownCities            []string `env:"KNOWN_CITIES" envSeparator:","`
	InboundRateLimitPerMin int      `env:"INBOUND_RATE_LIMIT_PER_MIN" envDefault:"30"`

	QueueBackend      string `env:"QUEUE_BACKEND" envDefault:"inline"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"4"`

	PendingRequestTTLHours int `env:"PENDING_REQUEST_TTL_HOURS" envDefault:"168"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) EditWindow() time.Duration {
	return time.Duration(c.EditWindowHours) * time.Hour
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutSeconds) * time.Second
}

func (c *Config) PendingRequestTTL() time.Duration {
	return time.Duration(c.PendingRequestTTLHours) * time.Hour
}

// AmountMinor is the itinerary price in the currency's smallest unit.
func (c *Config) AmountMinor() int64 {
	return c.ItineraryAmount * 100
}

// NeedsRedis reports whether any selected backend is Redis-backed.
func (c *Config) NeedsRedis() bool {
	return c.SessionBackend == BackendRedis || c.QueueBackend == QueueAsynq
}

// Location resolves DisplayTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.DisplayTimezone).Msg("unknown display timezone, using UTC")
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	if err := oneOf("SESSION_BACKEND", c.SessionBackend, BackendMemory, BackendRedis); err != nil {
		return err
	}
	if err := oneOf("QUEUE_BACKEND", c.QueueBackend, QueueInline, QueueAsynq); err != nil {
		return err
	}
	if err := oneOf("LLM_PROVIDER", c.LLMProvider, LLMOpenAI, LLMGemini); err != nil {
		return err
	}
	if err := oneOf("PAYMENT_PROVIDER", c.PaymentProvider, PaymentPaystack, PaymentStripe); err != nil {
		return err
	}
	if err := oneOf("STORAGE_PROVIDER", c.StorageProvider, StorageS3, StorageCloudinary); err != nil {
		return err
	}

	if c.NeedsRedis() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when SESSION_BACKEND=redis or QUEUE_BACKEND=asynq")
	}
	if c.EditWindowHours <= 0 {
		return fmt.Errorf("EDIT_WINDOW_HOURS must be positive")
	}
	if c.ItineraryAmount <= 0 {
		return fmt.Errorf("ITINERARY_AMOUNT must be positive")
	}
	if c.PaymentProvider == PaymentStripe && c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	if c.TwilioValidateSignature && c.TwilioAuthToken != "" && c.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required to validate Twilio signatures")
	}

	if c.IsProduction() {
		if c.TwilioAuthToken == "" || !c.TwilioValidateSignature {
			log.Warn().Msg("Twilio signature validation disabled in production")
		}
		if c.PaymentProvider == PaymentPaystack && c.PaystackSecretKey == "" {
			log.Warn().Msg("PAYSTACK_SECRET_KEY is empty in production: payments and webhook verification will fail")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, "|"), value)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
