package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 75 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 30 * time.Minute

// Paid requests still without an itinerary are redispatched by the cleanup
// job until they are this old.
const RedeliveryMaxAge = 2 * time.Hour

// Outbound collaborator timeouts
const (
	PaymentInitTimeout = 20 * time.Second
	MessagingTimeout   = 15 * time.Second
	PipelineTimeout    = 5 * time.Minute
	InboundTimeout     = 3 * time.Minute
	SessionLockTimeout = 10 * time.Second
	SessionLockTTL     = 2 * time.Minute
)

// WhatsApp message size caps
const (
	AssistantReplyMaxChars = 1200
	AssistantReplyCutChars = 1180
	TextFallbackMaxChars   = 1500
)

// Webhook body limit
const MaxWebhookBodyBytes = 64 * 1024
