package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/deliverydesk/config"
	"github.com/Domenick1991/deliverydesk/internal/bootstrap"
	"github.com/Domenick1991/deliverydesk/internal/cache"
	"github.com/Domenick1991/deliverydesk/internal/kafka"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/repository"
	"github.com/Domenick1991/deliverydesk/internal/service/booking"
	"github.com/Domenick1991/deliverydesk/internal/service/partners"
	"github.com/Domenick1991/deliverydesk/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rateLimitPrefix = "ratelimit:gps:"

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logging.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.PartnersCacheTTL())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		logging.Fatal().Err(err).Msg("connect redis")
	}

	locker := cache.NewLocker(redisCache.Client(), cache.LockOptions{
		TTL:        cfg.Booking.LockTTL(),
		RetryDelay: cfg.Booking.LockRetryDelay(),
		MaxRetries: cfg.Booking.LockMaxRetries,
	})
	limiter := cache.NewRateLimiter(redisCache.Client(), rateLimitPrefix, cfg.Tracking.RateLimit, cfg.Tracking.RateWindow())

	bookingRepo := repository.NewBookingRepository(pool)
	partnerRepo := repository.NewPartnerRepository(pool)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithLivePublisher(redisCache),
		booking.WithPartnerCache(redisCache),
	}
	partnerOpts := []partners.PartnerServiceOption{
		partners.WithCache(redisCache),
		partners.WithLivePublisher(redisCache),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
		partnerOpts = append(partnerOpts, partners.WithProducer(producer, cfg.Kafka.NotificationsTopic))
	}

	if cfg.Minio.Endpoint != "" {
		docs, err := storage.NewDocumentStore(cfg.Minio)
		if err != nil {
			logging.Fatal().Err(err).Msg("create document store")
		}
		if err := docs.CheckBucket(ctx); err != nil {
			logging.Warn().Err(err).Msg("document bucket unavailable, links will fail")
		}
		bookingOpts = append(bookingOpts, booking.WithDocumentLinker(docs))
	}

	bookingService := booking.NewBookingService(bookingRepo, partnerRepo, locker, bookingOpts...)
	partnerService := partners.NewPartnerService(partnerRepo, limiter, partnerOpts...)

	deps := bootstrap.Deps{
		Bookings: bookingService,
		Partners: partnerService,
		Redis:    redisCache,
		Health: map[string]bootstrap.Pinger{
			"postgres": pool,
			"redis":    redisCache,
		},
	}
	if err := bootstrap.Run(ctx, cfg, deps); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
}
