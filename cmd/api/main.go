package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/agendero/agendero/internal/api/router"
	"github.com/agendero/agendero/internal/availability"
	"github.com/agendero/agendero/internal/booking"
	"github.com/agendero/agendero/internal/calendars"
	appconfig "github.com/agendero/agendero/internal/config"
	"github.com/agendero/agendero/internal/gcal"
	"github.com/agendero/agendero/internal/googleauth"
	"github.com/agendero/agendero/internal/notify"
	"github.com/agendero/agendero/internal/observability/metrics"
	"github.com/agendero/agendero/internal/ops"
	"github.com/agendero/agendero/internal/schedule"
	"github.com/agendero/agendero/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agendero API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Resolve the Google credential. A missing token is not fatal: the
	// one-time /auth consent flow fills the store while the server runs.
	tokens, err := googleauth.NewStore(cfg.GoogleTokenJSON, cfg.GoogleTokenFile)
	if err != nil {
		logger.Error("failed to load Google credential", "error", err)
		os.Exit(1)
	}
	if !tokens.Authorized() {
		logger.Warn("no Google credential stored; visit /auth to authorize", "token_file", cfg.GoogleTokenFile)
	}
	oauth := googleauth.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL())

	// Initialize stores and services
	rdb := connectRedis(cfg, logger)
	defer rdb.Close()
	profiles := schedule.NewStore(rdb, cfg.DefaultTimezone)

	registry, appMetrics, metricsHandler := setupMetrics()

	gateway, err := gcal.New(gcal.Config{
		OAuth:   oauth,
		Tokens:  tokens,
		Metrics: appMetrics.calendar,
		Logger:  logger.With("component", "gcal"),
	})
	if err != nil {
		logger.Error("failed to build calendar client", "error", err)
		os.Exit(1)
	}

	sender := setupEmailSender(context.Background(), cfg, logger)
	notifier := notify.NewService(sender, cfg.NotifyStaffEmails, appMetrics.booking, logger.With("component", "notify"))

	engine := availability.NewEngine(gateway, profiles, appMetrics.availability, logger.With("component", "availability"))
	bookings := booking.NewService(gateway, profiles, notifier, appMetrics.booking, logger.With("component", "booking"))

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		AuthHandler:         googleauth.NewHandler(oauth, tokens, logger),
		AvailabilityHandler: availability.NewHandler(engine, logger),
		BookingHandler:      booking.NewHandler(bookings, logger),
		CalendarsHandler:    calendars.NewHandler(gateway, cfg.DefaultTimezone, logger),
		ProfileHandler:      schedule.NewHandler(profiles, logger),
		StatsHandler:        ops.NewStatsHandler(registry, logger),
		MetricsHandler:      metricsHandler,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type appMetrics struct {
	availability *metrics.AvailabilityMetrics
	booking      *metrics.BookingMetrics
	calendar     *metrics.CalendarMetrics
}

// setupMetrics builds the process-local Prometheus registry, the metric
// families, and the exposition handler served at /metrics.
func setupMetrics() (*prometheus.Registry, *appMetrics, http.Handler) {
	registry := prometheus.NewRegistry()
	m := &appMetrics{
		availability: metrics.NewAvailabilityMetrics(registry),
		booking:      metrics.NewBookingMetrics(registry),
		calendar:     metrics.NewCalendarMetrics(registry),
	}
	return registry, m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// connectRedis builds the client backing the booking profile store. Managed
// providers such as Upstash require TLS. An unreachable Redis is not fatal:
// profile reads degrade to the built-in defaults.
func connectRedis(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, booking profiles fall back to defaults", "addr", cfg.RedisAddr, "error", err)
	}
	return client
}

// setupEmailSender selects the staff notification transport: SES, SendGrid,
// or the logging stub when no provider is configured.
func setupEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config, staff notifications disabled", "error", err)
			return nil
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty, staff notifications disabled")
			return nil
		}
		return sender
	default:
		if len(cfg.NotifyStaffEmails) == 0 {
			return nil
		}
		return notify.NewStubEmailSender(logger)
	}
}

// loadAWSConfig initializes the AWS SDK with optional static credentials and
// a LocalStack endpoint override.
func loadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service == sesv2.ServiceID {
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.AWSRegion,
					}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			},
		)
	}

	return awsCfg, nil
}
