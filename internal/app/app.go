// Package app wires the storefront server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/order"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/payment"
	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
	"github.com/mariotejeda2001/Glazeepink/internal/events"
	"github.com/mariotejeda2001/Glazeepink/internal/handler"
	"github.com/mariotejeda2001/Glazeepink/internal/processor/stripe"
	"github.com/mariotejeda2001/Glazeepink/internal/repository"
	"github.com/mariotejeda2001/Glazeepink/pkg/health"
	"github.com/mariotejeda2001/Glazeepink/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application. m is usually
// the *app.Telemetry handed over by the sdk.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.TelemetryProvider, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PostgresCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	var productRepo product.Repository = repository.NewProductRepository(pool)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(rdb))
		productRepo = repository.NewCachedProductRepository(productRepo, rdb, cfg.Redis.TTL)
		lg.Info("Catalog cache enabled", zap.String("redis", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	// Payments.
	processor, err := stripe.NewProcessor(stripe.Config{
		Key:     cfg.Payment.SecretKey,
		Timeout: cfg.Payment.Timeout,
		URL:     cfg.Payment.URL,
	})
	if err != nil {
		return errors.Wrap(err, "create payment processor")
	}
	broker := payment.NewBroker(processor, payment.BrokerConfig{
		Currency:        cfg.Payment.Currency,
		BreakerFailures: cfg.Payment.BreakerFailures,
		BreakerCooldown: cfg.Payment.BreakerCooldown,
	}, lg.Named("payment"))

	// Order events.
	var publisher order.Publisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return errors.Wrap(err, "create kafka publisher")
		}
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
		lg.Info("Publishing order events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// Domain services.
	issuer, err := auth.NewIssuer([]byte(cfg.Auth.Secret), cfg.Auth.TTL)
	if err != nil {
		return errors.Wrap(err, "create credential issuer")
	}
	accounts := auth.NewService(userRepo, issuer, cfg.Auth.BcryptCost)

	tolerance, err := cfg.Payment.Tolerance()
	if err != nil {
		return err
	}
	orderService, err := order.NewService(productRepo, orderRepo, broker, publisher,
		m.MeterProvider().Meter("github.com/mariotejeda2001/Glazeepink/internal/domain/order"),
		order.Config{
			RequireIntent:  cfg.Payment.RequireIntent,
			TotalTolerance: tolerance,
		},
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	if !cfg.Payment.RequireIntent {
		lg.Warn("Orders are recorded without payment verification")
	}

	// HTTP.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		accounts,
		productRepo,
		broker,
		orderService,
		issuer,
	)
	r := chi.NewRouter()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Mount(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(r,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("bakery-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		defer healthSvc.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
