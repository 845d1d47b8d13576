package partners

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/cache"
	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/Domenick1991/deliverydesk/internal/kafka"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/metrics"
	"github.com/Domenick1991/deliverydesk/internal/repository"
	"github.com/go-playground/validator/v10"
)

type PartnerUseCase interface {
	ListPartners(ctx context.Context) ([]domain.Partner, error)
	ListLocations(ctx context.Context) ([]domain.PartnerPosition, error)
	UpdateLocation(ctx context.Context, input LocationInput) (*LocationResult, error)
	ReleasePartner(ctx context.Context, partnerID string) error
}

type PartnerCache interface {
	GetPartners(ctx context.Context) ([]domain.Partner, error)
	SetPartners(ctx context.Context, partners []domain.Partner) error
	InvalidatePartners(ctx context.Context) error
}

type RateLimiter interface {
	Allow(ctx context.Context, id string) (cache.RateDecision, error)
}

type LivePublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type LocationInput struct {
	PartnerID string  `validate:"required"`
	Lat       float64 `validate:"gte=-90,lte=90"`
	Lng       float64 `validate:"gte=-180,lte=180"`
}

type LocationResult struct {
	Location  domain.LocationUpdate
	Remaining int
}

type PartnerService struct {
	repo     repository.PartnerRepository
	cache    PartnerCache
	limiter  RateLimiter
	live     LivePublisher
	producer Producer
	topic    string
	validate *validator.Validate
	now      func() time.Time
}

type PartnerServiceOption func(*PartnerService)

func WithCache(c PartnerCache) PartnerServiceOption {
	return func(s *PartnerService) {
		s.cache = c
	}
}

func WithLivePublisher(live LivePublisher) PartnerServiceOption {
	return func(s *PartnerService) {
		s.live = live
	}
}

func WithProducer(producer Producer, topic string) PartnerServiceOption {
	return func(s *PartnerService) {
		s.producer = producer
		s.topic = topic
	}
}

func WithClock(now func() time.Time) PartnerServiceOption {
	return func(s *PartnerService) {
		s.now = now
	}
}

func NewPartnerService(repo repository.PartnerRepository, limiter RateLimiter, opts ...PartnerServiceOption) *PartnerService {
	s := &PartnerService{
		repo:     repo,
		limiter:  limiter,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PartnerService) ListPartners(ctx context.Context) ([]domain.Partner, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetPartners(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	partners, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetPartners(ctx, partners); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("partner cache write failed")
		}
	}
	return partners, nil
}

// ListLocations returns the last known position of every partner that has
// reported one. It reads the store directly; positions change too often to
// cache.
func (s *PartnerService) ListLocations(ctx context.Context) ([]domain.PartnerPosition, error) {
	partners, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	positions := make([]domain.PartnerPosition, 0, len(partners))
	for _, p := range partners {
		if p.Location == nil {
			continue
		}
		positions = append(positions, domain.PartnerPosition{
			ID:        p.ID,
			Name:      p.Name,
			Lat:       p.Location.Lat,
			Lng:       p.Location.Lng,
			UpdatedAt: p.Location.UpdatedAt,
		})
	}
	return positions, nil
}

// UpdateLocation stores a GPS fix and broadcasts it. Updates over the
// partner's quota are dropped with ErrRateLimited.
func (s *PartnerService) UpdateLocation(ctx context.Context, input LocationInput) (*LocationResult, error) {
	if err := s.validate.Struct(input); err != nil {
		metrics.LocationUpdates.WithLabelValues("invalid").Inc()
		return nil, domain.NewDetailError(domain.ErrInvalidInput, fieldErrors(err), "Invalid location: %s", summarize(err))
	}

	decision, err := s.limiter.Allow(ctx, input.PartnerID)
	if err != nil {
		metrics.LocationUpdates.WithLabelValues("error").Inc()
		return nil, err
	}
	if !decision.Allowed {
		metrics.LocationUpdates.WithLabelValues("rate_limited").Inc()
		retry := int((decision.RetryAfter + time.Second - 1) / time.Second)
		return nil, domain.NewDetailError(domain.ErrRateLimited,
			map[string]any{"retryAfter": retry, "remaining": decision.Remaining},
			"Too many location updates. Retry in %d seconds", retry)
	}

	now := s.now()
	if err := s.repo.UpdateLocation(ctx, input.PartnerID, input.Lat, input.Lng, now); err != nil {
		metrics.LocationUpdates.WithLabelValues(metrics.Outcome(err)).Inc()
		return nil, err
	}
	metrics.LocationUpdates.WithLabelValues("ok").Inc()

	update := domain.LocationUpdate{
		PartnerID: input.PartnerID,
		Lat:       input.Lat,
		Lng:       input.Lng,
		Timestamp: now,
	}
	if s.live != nil {
		if err := s.live.Publish(ctx, cache.ChannelPartnerLocation, update); err != nil {
			metrics.EventPublishFailures.WithLabelValues("live").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("partner_id", input.PartnerID).Msg("location publish failed")
		}
	}
	return &LocationResult{Location: update, Remaining: decision.Remaining}, nil
}

// ReleasePartner puts a busy partner back online once it no longer holds an
// ASSIGNED booking.
func (s *PartnerService) ReleasePartner(ctx context.Context, partnerID string) error {
	partner, err := s.repo.GetByID(ctx, partnerID)
	if err != nil {
		return err
	}
	if partner.Status != domain.PartnerStatusBusy {
		return domain.NewDetailError(domain.ErrInvalidState,
			map[string]any{"status": partner.Status},
			"Partner is not busy. Current status: %s", partner.Status)
	}

	now := s.now()
	released, err := s.repo.Release(ctx, partnerID, now)
	if err != nil {
		return err
	}
	if !released {
		return domain.NewDetailError(domain.ErrInvalidState, nil, "Partner %s has an active assignment", partnerID)
	}

	logging.Ctx(ctx).Info().Str("partner_id", partnerID).Msg("partner released")
	if s.cache != nil {
		if err := s.cache.InvalidatePartners(ctx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("partner cache invalidation failed")
		}
	}
	if s.producer != nil && s.topic != "" {
		event := kafka.BookingEvent{
			Type:       kafka.EventPartnerReleased,
			PartnerID:  partnerID,
			Status:     string(domain.PartnerStatusOnline),
			OccurredAt: now,
		}
		if err := s.producer.Publish(ctx, s.topic, partnerID, event); err != nil {
			metrics.EventPublishFailures.WithLabelValues("kafka").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("partner_id", partnerID).Msg("failed to publish release event")
		}
	}
	return nil
}

func fieldErrors(err error) map[string]any {
	details := map[string]any{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			details[strings.ToLower(fe.Field())] = rule
		}
	}
	return details
}

func summarize(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			fields = append(fields, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
			continue
		}
		fields = append(fields, fmt.Sprintf("%s out of range", strings.ToLower(fe.Field())))
	}
	return strings.Join(fields, ", ")
}

var _ PartnerUseCase = (*PartnerService)(nil)
