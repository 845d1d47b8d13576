package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/deliverydesk/config"
	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Pub/sub channels relayed to live clients.
const (
	ChannelPartnerLocation  = "partner:gps-update"
	ChannelBookingConfirmed = "booking:confirmed"
)

// RedisCache owns the shared Redis connection. It is built once at startup,
// checked with Ping before serving and closed on shutdown.
type RedisCache struct {
	client      *redis.Client
	partnersTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, partnersTTL time.Duration) *RedisCache {
	return NewRedisCacheFromClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		partnersTTL,
	)
}

func NewRedisCacheFromClient(client *redis.Client, partnersTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, partnersTTL: partnersTTL}
}

func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetPartners(ctx context.Context) ([]domain.Partner, error) {
	data, err := c.client.Get(ctx, partnersKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var partners []domain.Partner
	if err := json.Unmarshal(data, &partners); err != nil {
		return nil, err
	}
	return partners, nil
}

func (c *RedisCache) SetPartners(ctx context.Context, partners []domain.Partner) error {
	payload, err := json.Marshal(partners)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, partnersKey(), payload, c.partnersTTL).Err()
}

func (c *RedisCache) InvalidatePartners(ctx context.Context) error {
	return c.client.Del(ctx, partnersKey()).Err()
}

// Publish JSON-encodes payload onto a pub/sub channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", channel, err)
	}
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection and waits for the
// subscription to be confirmed. The caller must Close the result.
func (c *RedisCache) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	ps := c.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}
	return ps, nil
}

func partnersKey() string {
	return "cache:partners"
}
