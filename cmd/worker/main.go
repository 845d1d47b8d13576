package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/deliverydesk/config"
	"github.com/Domenick1991/deliverydesk/internal/cache"
	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/Domenick1991/deliverydesk/internal/kafka"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/notify"
	"github.com/Domenick1991/deliverydesk/internal/repository"
	"github.com/Domenick1991/deliverydesk/internal/service/booking"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
)

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
	locker := cache.NewLocker(redisCache.Client(), cache.LockOptions{
		TTL:        cfg.Booking.LockTTL(),
		RetryDelay: cfg.Booking.LockRetryDelay(),
		MaxRetries: cfg.Booking.LockMaxRetries,
	})

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		repository.NewPartnerRepository(pool),
		locker,
	)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		defer consumer.Close()

		sender := notify.NewSender()
		go func() {
			err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
				var event kafka.BookingEvent
				if err := json.Unmarshal(msg.Value, &event); err != nil {
					logging.Warn().Err(err).Str("topic", msg.Topic).Msg("decode event")
					return nil
				}
				return sender.Send(ctx, event)
			})
			if err != nil && ctx.Err() == nil {
				logging.Error().Err(err).Msg("consumer stopped")
			}
		}()
	}

	logging.Info().Int("reconcile_minutes", cfg.Worker.ReconcileMinutes).Msg("worker started")
	runReconciler(ctx, bookingService, time.Duration(cfg.Worker.ReconcileMinutes)*time.Minute)
	logging.Info().Msg("worker shutting down")
}

type reconciler interface {
	Reconcile(ctx context.Context) ([]domain.Inconsistency, error)
}

// runReconciler scans once on start and then every interval until ctx ends.
func runReconciler(ctx context.Context, r reconciler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		found, err := r.Reconcile(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logging.Error().Err(err).Msg("reconcile bookings")
		case len(found) > 0:
			logging.Warn().Int("count", len(found)).Msg("booking/partner inconsistencies found")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
