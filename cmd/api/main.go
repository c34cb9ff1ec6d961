package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sportello-uk/sportello-backend/api/routes"
	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/internal/bookings"
	"github.com/sportello-uk/sportello-backend/internal/forms"
	"github.com/sportello-uk/sportello-backend/internal/onboarding"
	"github.com/sportello-uk/sportello-backend/internal/payments"
	"github.com/sportello-uk/sportello-backend/internal/sessions"
	"github.com/sportello-uk/sportello-backend/pkg/config"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
	"github.com/sportello-uk/sportello-backend/pkg/metrics"
	"github.com/sportello-uk/sportello-backend/pkg/redis"
	"github.com/sportello-uk/sportello-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	var (
		store  sessions.Store
		memory *sessions.MemoryStore
	)
	switch strings.ToLower(cfg.Sessions.Backend) {
	case config.SessionBackendMemory:
		memory = sessions.NewMemoryStore(cfg.Sessions.TTL)
		store = memory
	default:
		store, err = sessions.NewRedisStore(redisClient, cfg.Sessions.TTL)
		if err != nil {
			return err
		}
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}
	gateway, err := payments.NewStripeGateway(stripeClient)
	if err != nil {
		return err
	}

	sink, err := audit.NewClient(cfg.Audit.URL, cfg.Audit.Token, audit.WithTimeout(cfg.Audit.Timeout))
	if err != nil {
		return err
	}

	returns, err := payments.NewReturnURLs(cfg.App.PublicBaseURL)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sagaMetrics := metrics.NewSagaMetrics(registry)

	orchestrator, err := payments.NewOrchestrator(gateway, sink, returns, payments.Config{
		PublishableKey: stripeClient.PublishableKey(),
		VoidAbandoned:  cfg.Stripe.VoidAbandoned,
		AuditTimeout:   cfg.Audit.Timeout,
		AuditGrace:     cfg.Audit.Grace,
	}, sagaMetrics, logg)
	if err != nil {
		return err
	}

	catalogue, err := forms.NewCatalogue(forms.Options{
		Currency:    stripeClient.Currency(),
		Pricing:     cfg.Pricing,
		Attachments: cfg.Attachments,
	})
	if err != nil {
		return err
	}

	bookingService, err := bookings.NewService(bookings.Options{
		Catalogue:     catalogue,
		Store:         store,
		Orchestrator:  orchestrator,
		Sink:          sink,
		DefaultLocale: cfg.App.DefaultLocale,
		Metrics:       sagaMetrics,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	submitter, err := onboarding.NewClient(cfg.Onboarding.URL, cfg.Onboarding.Token, cfg.Onboarding.Timeout)
	if err != nil {
		return err
	}
	onboardingService, err := onboarding.NewService(onboarding.Options{
		Catalogue:     catalogue,
		Gateway:       gateway,
		Submitter:     submitter,
		MaxQueryBytes: cfg.Onboarding.MaxQueryBytes,
		Metrics:       sagaMetrics,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	var redisStore routes.RedisStore
	if redisClient != nil {
		redisStore = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"session_backend": cfg.Sessions.Backend,
		"stripe_env":      stripeClient.Environment(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, redisStore, registry, catalogue, bookingService, onboardingService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(logCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})
	if memory != nil {
		g.Go(func() error {
			sweepSessions(gctx, memory, cfg.Sessions.TTL, logg)
			return nil
		})
	}
	return g.Wait()
}

func sweepSessions(ctx context.Context, store *sessions.MemoryStore, ttl time.Duration, logg *logger.Logger) {
	ticker := time.NewTicker(max(ttl/4, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logg.Info(logg.WithField(ctx, "expired", n), "sessions.swept")
			}
		}
	}
}
