// Felicity events backend: event lifecycle, registration with capacity and
// stock reservation, ticket issuance with QR check-in, and manual payment
// approval for merchandise orders.
//
// @title Felicity Events API
// @version 1.0
// @description Campus event and merchandise platform backend.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"felicityevents/config"
	authadapter "felicityevents/internal/adapters/auth"
	"felicityevents/internal/adapters/email"
	"felicityevents/internal/adapters/notify"
	"felicityevents/internal/adapters/trending"
	"felicityevents/internal/adapters/webhook"
	httpdelivery "felicityevents/internal/delivery/http"
	"felicityevents/internal/delivery/http/controllers"
	"felicityevents/internal/delivery/http/middleware"
	"felicityevents/internal/monitoring"
	"felicityevents/internal/repository/postgres"
	"felicityevents/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}

	// Repositories
	participantRepo := postgres.NewPostgresParticipantRepository(db)
	organizerRepo := postgres.NewPostgresOrganizerRepository(db)
	eventRepo := postgres.NewPostgresEventRepository(db)
	registrationRepo := postgres.NewPostgresRegistrationRepository(db)

	// Adapters
	tokens := authadapter.NewJWTManager(cfg.JWTSecret)
	hasher := authadapter.NewBcryptHasher()
	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFrom,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		},
	}, logger)
	renderer := email.NewTemplateRenderer()
	announcer := webhook.NewAnnouncer(logger)

	notifier := notify.NewNoopNotifier()
	if cfg.AMQPUrl != "" {
		rabbit, err := notify.NewRabbitNotifier(cfg.AMQPUrl, logger)
		if err != nil {
			logger.Error("failed to connect notifier, notifications disabled", "err", err)
		} else {
			notifier = rabbit
		}
	}
	defer notifier.Close()

	views := trending.NewNoopViewTracker()
	if cfg.RedisAddr != "" {
		views = trending.NewRedisViewTracker(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	metrics := monitoring.NewMetrics()

	// Services
	emails := services.NewEmailService(renderer, mailer)
	tokenExpiry := time.Duration(cfg.TokenExpiryHours) * time.Hour
	authService := services.NewAuthService(participantRepo, organizerRepo, hasher, tokens, tokenExpiry)
	adminService := services.NewAdminService(organizerRepo, hasher, emails, logger)
	eventService := services.NewEventService(eventRepo, registrationRepo, organizerRepo, announcer, notifier, logger)
	registrationService := services.NewRegistrationService(eventRepo, registrationRepo, participantRepo, emails, notifier, metrics, logger)
	paymentService := services.NewPaymentService(eventRepo, registrationRepo, participantRepo, emails, notifier, metrics, logger)
	checkInService := services.NewCheckInService(eventRepo, registrationRepo, notifier, metrics, logger)
	browseService := services.NewBrowseService(eventRepo, registrationRepo, participantRepo, organizerRepo, views, logger)

	// HTTP
	mux := httpdelivery.NewRouter(
		tokens,
		metrics,
		controllers.NewAuthController(logger, authService),
		controllers.NewParticipantController(logger, browseService, registrationService, paymentService),
		controllers.NewOrganizerController(logger, eventService, paymentService, checkInService),
		controllers.NewAdminController(logger, adminService),
	)

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSOrigins, handler)
	handler = middleware.Logging(logger, handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
