package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
	"github.com/huguadventures/travel-assistant-go/internal/assistant"
	"github.com/huguadventures/travel-assistant-go/internal/config"
	"github.com/huguadventures/travel-assistant-go/internal/database"
	"github.com/huguadventures/travel-assistant-go/internal/handler"
	"github.com/huguadventures/travel-assistant-go/internal/itinerary"
	"github.com/huguadventures/travel-assistant-go/internal/jobs"
	"github.com/huguadventures/travel-assistant-go/internal/llm"
	"github.com/huguadventures/travel-assistant-go/internal/messaging"
	"github.com/huguadventures/travel-assistant-go/internal/middleware"
	"github.com/huguadventures/travel-assistant-go/internal/payment"
	"github.com/huguadventures/travel-assistant-go/internal/pdf"
	"github.com/huguadventures/travel-assistant-go/internal/queue"
	"github.com/huguadventures/travel-assistant-go/internal/redis"
	"github.com/huguadventures/travel-assistant-go/internal/repository"
	"github.com/huguadventures/travel-assistant-go/internal/service"
	"github.com/huguadventures/travel-assistant-go/internal/session"
	"github.com/huguadventures/travel-assistant-go/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	if err := db.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	completer, closeCompleter, err := newCompleter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm client")
	}
	defer closeCompleter()

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage uploader")
	}

	gateway := newGateway(cfg)
	sender := messaging.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioNumber, cfg.TwilioMessagesPerSecond)

	links := affiliate.Links{
		TourPartner: affiliate.Provider{
			BaseURL: cfg.ViatorBaseURL,
			Suffix:  cfg.ViatorSuffix,
			Params:  cfg.ViatorParams,
		},
		HotelPartner:  affiliate.Provider{BaseURL: cfg.BookingBaseURL},
		FlightPartner: affiliate.Provider{BaseURL: cfg.FlightsBaseURL},
	}
	msgs := service.Messages{
		Brand:      cfg.BrandName,
		PriceLabel: cfg.ItineraryPriceLabel,
		EditWindow: cfg.EditWindow(),
		Location:   cfg.Location(),
	}

	cities := cfg.KnownCities
	if len(cities) == 0 {
		cities = itinerary.DefaultCities
	}
	writer := itinerary.NewWriter(
		itinerary.NewGenerator(completer, cfg.BrandName),
		itinerary.NewKeywordDetector(cities),
		links,
	)

	requestRepo := repository.NewItineraryRequestRepository(db.DB)

	fulfillmentService := service.NewFulfillmentService(
		requestRepo, writer, pdf.NewRenderer(cfg.BrandName), uploader, sender, msgs,
	)

	var (
		dispatcher queue.Dispatcher
		worker     *queue.Worker
		inline     *queue.InlineDispatcher
	)
	if cfg.QueueBackend == config.QueueAsynq {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse redis url for queue")
		}
		asynqDispatcher := queue.NewAsynqDispatcher(opt, config.PipelineTimeout)
		defer asynqDispatcher.Close()
		dispatcher = asynqDispatcher
		worker = queue.NewWorker(opt, cfg.WorkerConcurrency, fulfillmentService)
	} else {
		inline = queue.NewInlineDispatcher(fulfillmentService, config.PipelineTimeout)
		dispatcher = inline
	}

	callbackURL := cfg.PaymentCallbackURL
	if callbackURL == "" && cfg.PublicBaseURL != "" {
		callbackURL = strings.TrimRight(cfg.PublicBaseURL, "/") + "/payments/thanks"
	}
	checkoutService := service.NewCheckoutService(db, requestRepo, gateway, dispatcher, service.CheckoutConfig{
		AmountMinor: cfg.AmountMinor(),
		Currency:    cfg.ItineraryCurrency,
		EmailDomain: cfg.CustomerEmailDomain,
		CallbackURL: callbackURL,
		EditWindow:  cfg.EditWindow(),
	})

	store, locker := newSessionBackend(cfg, redisClient)
	conversationService := service.NewConversationService(
		store, locker, requestRepo,
		assistant.New(completer, cfg.BrandName),
		checkoutService, dispatcher, sender, links, msgs,
	)

	var limiter service.InboundLimiter
	if redisClient != nil {
		limiter = service.NewRateLimiter(redisClient.Client, cfg.InboundRateLimitPerMin)
	} else {
		limiter = service.NewMemoryLimiter(cfg.InboundRateLimitPerMin)
	}

	whatsappHandler := handler.NewWhatsAppHandler(conversationService, limiter, config.InboundTimeout)
	paymentHandler := handler.NewPaymentHandler(gateway, checkoutService, cfg.BrandName)
	healthHandler := handler.NewHealthHandler(db)

	signatureToken := cfg.TwilioAuthToken
	if !cfg.TwilioValidateSignature {
		signatureToken = ""
	}
	twilioSignatureMiddleware := middleware.NewTwilioSignatureMiddleware(signatureToken, cfg.PublicBaseURL)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/whatsapp", func(r chi.Router) {
		r.Use(twilioSignatureMiddleware.Handler)
		r.Post("/webhook", whatsappHandler.Webhook)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", paymentHandler.Webhook)
		r.With(securityHeadersMiddleware.Handler).Get("/thanks", paymentHandler.Thanks)
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
		return nil
	})

	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}

	cleanupJob := jobs.NewCleanupJob(requestRepo, checkoutService, cfg.PendingRequestTTL(), config.CleanupJobInterval)
	g.Go(func() error { return cleanupJob.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
	}

	whatsappHandler.Wait()
	if inline != nil {
		inline.Wait()
	}

	log.Info().Msg("server stopped")
}

func newCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, func(), error) {
	if cfg.LLMProvider == config.LLMGemini {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return llm.WithRetry(gemini, cfg.LLMTimeout()), func() { _ = gemini.Close() }, nil
	}
	return llm.WithRetry(llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), cfg.LLMTimeout()), func() {}, nil
}

func newUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	var (
		uploader storage.Uploader
		err      error
	)
	if cfg.StorageProvider == config.StorageCloudinary {
		uploader, err = storage.NewCloudinaryUploader(cfg.CloudinaryURL)
	} else {
		uploader, err = storage.NewS3Uploader(ctx, storage.S3Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.S3Bucket,
			BaseURL:         cfg.S3BaseURL,
		})
	}
	if err != nil {
		return nil, err
	}
	return storage.WithRetry(uploader, cfg.StorageTimeout()), nil
}

func newGateway(cfg *config.Config) payment.Gateway {
	if cfg.PaymentProvider == config.PaymentStripe {
		return payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}
	return payment.NewPaystack(cfg.PaystackBaseURL, cfg.PaystackSecretKey, config.PaymentInitTimeout)
}

func newSessionBackend(cfg *config.Config, redisClient *redis.Client) (session.Store, session.Locker) {
	if cfg.SessionBackend == config.BackendRedis {
		return session.NewRedisStore(redisClient.Client, cfg.SessionTTL()),
			session.NewRedisLocker(redisClient.Client, config.SessionLockTTL, config.SessionLockTimeout)
	}
	return session.NewMemoryStore(cfg.SessionTTL()), session.NewMemoryLocker()
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
