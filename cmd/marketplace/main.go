package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/locks"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/payments"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/service"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/settlement"
)

func main() {
	app := &cli.App{
		Name:   "marketplace",
		Usage:  "acme-shop marketplace service",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and settlement workers",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   repository.MigrateUp,
						Usage:  "apply all pending migrations",
						Action: migrate(repository.MigrateUp),
					},
					{
						Name:   repository.MigrateDown,
						Usage:  "roll back all migrations",
						Action: migrate(repository.MigrateDown),
					},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logging.NewLogger("marketplace").Fatal("Service failed", logging.Fields{"error": err.Error()})
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func migrate(direction string) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return repository.Migrate(cfg.Database, direction, logging.NewLogger("migrate"))
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("marketplace-service")
	logging.Infof("Starting marketplace-service on port %d", cfg.Server.Port)

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(cfg.Database, repository.MigrateUp, logging.NewLogger("migrate")); err != nil {
			return err
		}
	}

	db, err := repository.Open(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Database connected", logging.Fields{
		"driver": cfg.Database.Driver,
		"name":   cfg.Database.Name,
	})

	store := repository.NewStore(db, repository.Dialect(cfg.Database.Driver), logging.NewLogger("repository"))

	var orderCache repository.OrderCache = repository.NoopOrderCache{}
	if cfg.Features.EnableOrderCaching {
		redisCache := repository.NewRedisOrderCache(cfg.Redis)
		defer redisCache.Close()
		if err := redisCache.Ping(c.Context); err != nil {
			logger.Warn("Redis unreachable, order history cache degraded", logging.Fields{"error": err.Error()})
		}
		orderCache = redisCache
	}

	var publisher interface {
		service.EventPublisher
		Close() error
	} = events.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka, logging.NewLogger("event-publisher"))
	}
	defer publisher.Close()

	m := metrics.New()
	paymentStore := payments.NewStore()
	scheduler := settlement.NewScheduler(settlement.Config{
		Delay:          cfg.Settlement.Delay,
		Workers:        cfg.Settlement.Workers,
		AcquireTimeout: cfg.Settlement.AcquireTimeout,
		ConfirmTimeout: cfg.Settlement.ConfirmTimeout,
	}, logging.NewLogger("settlement"))

	m.RegisterGaugeFunc("pending_payments", "Payments awaiting settlement.", func() float64 {
		return float64(paymentStore.Counts()[models.PaymentStatusPending])
	})
	m.RegisterGaugeFunc("settlement_slots_in_use", "Settlement worker slots currently held.", func() float64 {
		return float64(scheduler.InFlight())
	})

	buyers := locks.NewKeyedMutex()
	checkout := service.NewCheckoutService(store, paymentStore, scheduler, buyers, orderCache, publisher, m, cfg.Payments)

	h := handlers.NewHandlers(
		service.NewProductService(store, orderCache),
		service.NewCartService(store, buyers),
		service.NewAddressService(store),
		checkout,
		service.NewOrderService(store, orderCache, cfg.Features.EnableOrderCaching),
		store,
		cfg,
	)
	srv := server.New(h, m, cfg)

	g, ctx := errgroup.WithContext(c.Context)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})

	g.Go(func() error {
		return checkout.RunSweeper(ctx, cfg.Payments.SweepInterval)
	})

	if cfg.Kafka.Enabled() && cfg.Features.EnableGatewayEvents {
		consumer := events.NewKafkaConsumer(cfg.Kafka, checkout, logging.NewLogger("event-consumer"))
		defer consumer.Close()
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
		}
		return scheduler.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server exited")
	return nil
}
