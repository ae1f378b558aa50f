package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodly/storefront/internal/address"
	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/cart"
	"github.com/foodly/storefront/internal/catalog"
	"github.com/foodly/storefront/internal/checkout"
	"github.com/foodly/storefront/internal/config"
	"github.com/foodly/storefront/internal/events"
	"github.com/foodly/storefront/internal/handler"
	"github.com/foodly/storefront/internal/logger"
	"github.com/foodly/storefront/internal/orders"
	"github.com/foodly/storefront/internal/promotion"
	"github.com/foodly/storefront/internal/router"
	"github.com/foodly/storefront/internal/settings"
	"github.com/foodly/storefront/internal/tracking"
	"github.com/foodly/storefront/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const statusConsumerGroup = "storefront-tracking"

func main() {
	configPath := flag.String("config", "", "optional config file (.env, yaml)")
	skipMigrate := flag.Bool("skip-migrate", false, "do not apply database migrations on start")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*skipMigrate {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping postgres")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("ping redis")
	}

	var writer events.Writer
	if len(cfg.KafkaBrokers) > 0 {
		writer = events.NewKafkaWriter(cfg.KafkaBrokers)
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, events will not be published")
	}
	publisher := events.NewPublisher(writer, log)
	defer publisher.Close()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	api := apiclient.New(cfg.UpstreamBaseURL, httpClient)

	cartSvc := cart.NewService(cart.NewRedisStore(rdb, cart.DefaultTTL), api, api, log)
	validator := promotion.NewValidator(api)
	checkoutSvc := checkout.NewService(cartSvc, api, validator, publisher, cfg.ShippingFee, log)
	orderSvc := orders.NewService(api, orders.NewRedisMarkers(rdb), publisher, cfg.PublicBaseURL, log)
	settingsSvc := settings.NewService(pool, settings.New(pool), func(db settings.DBTX) settings.Store {
		return settings.New(db)
	}, log)

	hub := tracking.NewHub(log)
	tracker := tracking.NewTracker(hub, api, rdb, log)

	h := router.Handlers{
		Catalog:    handler.NewCatalogHandler(catalog.NewService(api), log),
		Promotions: handler.NewPromotionHandler(api, validator, log),
		Cart:       handler.NewCartHandler(cartSvc, log),
		Checkout:   handler.NewCheckoutHandler(checkoutSvc, log),
		Orders:     handler.NewOrderHandler(orderSvc, tracker, log),
		Settings:   handler.NewSettingsHandler(settingsSvc, log),
		Address:    handler.NewAddressHandler(address.NewSuggester(cfg.GeocoderURL, httpClient, rdb, log), log),
		Shipper:    handler.NewShipperHandler(api, tracker, log),
		Admin:      handler.NewAdminHandler(api, log),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, h, tracker, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		g.Go(func() error {
			reader := events.NewStatusReader(cfg.KafkaBrokers, statusConsumerGroup)
			defer reader.Close()
			return events.ConsumeStatus(gctx, reader, log, tracker.StatusChanged)
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}
