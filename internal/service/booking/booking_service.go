package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/cache"
	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/Domenick1991/deliverydesk/internal/kafka"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/metrics"
	"github.com/Domenick1991/deliverydesk/internal/repository"
)

const defaultReviewer = "dashboard"

type BookingUseCase interface {
	ListBookings(ctx context.Context) ([]domain.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	AssignPartner(ctx context.Context, bookingID, partnerID string) (*domain.Booking, error)
	ReviewDocument(ctx context.Context, input ReviewInput) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	DocumentLink(ctx context.Context, bookingID, docType string) (string, error)
	Reconcile(ctx context.Context) ([]domain.Inconsistency, error)
}

// Locker serialises operations on one resource key across processes.
type Locker interface {
	WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error
}

// Producer sends booking events to the durable event log.
type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// LivePublisher pushes events to connected dashboards.
type LivePublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type PartnerCache interface {
	InvalidatePartners(ctx context.Context) error
}

type DocumentLinker interface {
	PresignedURL(ctx context.Context, objectKey string) (string, error)
}

type ReviewInput struct {
	BookingID  string
	DocType    string
	Status     domain.DocumentStatus
	ReviewedBy string
}

type BookingService struct {
	bookings           repository.BookingRepository
	partners           repository.PartnerRepository
	locker             Locker
	producer           Producer
	live               LivePublisher
	partnerCache       PartnerCache
	linker             DocumentLinker
	bookingTopic       string
	notificationsTopic string
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithProducer(producer Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLivePublisher(live LivePublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.live = live
	}
}

func WithPartnerCache(c PartnerCache) BookingServiceOption {
	return func(s *BookingService) {
		s.partnerCache = c
	}
}

func WithDocumentLinker(l DocumentLinker) BookingServiceOption {
	return func(s *BookingService) {
		s.linker = l
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	partners repository.PartnerRepository,
	locker Locker,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		partners: partners,
		locker:   locker,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func assignLockKey(bookingID string) string {
	return "booking:assign:" + bookingID
}

func confirmLockKey(bookingID string) string {
	return "booking:confirm:" + bookingID
}

func (s *BookingService) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.List(ctx)
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

// AssignPartner moves a PENDING booking to ASSIGNED and marks the partner
// busy. Checks run inside the per-booking lock, so two dispatchers racing on
// the same booking cannot both win.
func (s *BookingService) AssignPartner(ctx context.Context, bookingID, partnerID string) (*domain.Booking, error) {
	if bookingID == "" || partnerID == "" {
		return nil, fmt.Errorf("%w: booking id and partner id are required", domain.ErrInvalidInput)
	}

	var assigned *domain.Booking
	err := s.locker.WithLock(ctx, assignLockKey(bookingID), func(ctx context.Context) error {
		booking, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusPending {
			return domain.NewDetailError(domain.ErrInvalidState,
				map[string]any{"status": booking.Status},
				"Booking cannot be assigned. Current status: %s", booking.Status)
		}
		if booking.HasPartner() {
			return domain.ErrAlreadyAssigned
		}

		partner, err := s.partners.GetByID(ctx, partnerID)
		if err != nil {
			return err
		}
		if partner.Status != domain.PartnerStatusOnline {
			return domain.NewDetailError(domain.ErrPartnerUnavailable,
				map[string]any{"status": partner.Status},
				"Partner is not available. Current status: %s", partner.Status)
		}

		now := s.now()
		if err := s.bookings.AssignPartner(ctx, bookingID, partnerID, now); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusAssigned
		booking.PartnerID = &partnerID
		booking.UpdatedAt = now
		assigned = booking
		return nil
	})
	record("assign", err)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("booking_id", bookingID).Str("partner_id", partnerID).Msg("partner assigned")
	s.invalidatePartners(ctx)
	s.publish(ctx, kafka.BookingEvent{Type: kafka.EventBookingAssigned, PartnerID: partnerID}, assigned)
	return assigned, nil
}

// ReviewDocument records an APPROVED or REJECTED decision. It is not locked:
// each document is an independent field and the last reviewer wins.
func (s *BookingService) ReviewDocument(ctx context.Context, input ReviewInput) (*domain.Booking, error) {
	if !input.Status.IsDecision() {
		return nil, domain.NewDetailError(domain.ErrInvalidStatus,
			map[string]any{"allowed": []domain.DocumentStatus{domain.DocumentStatusApproved, domain.DocumentStatusRejected}},
			"Valid status is required, got %q", input.Status)
	}
	if input.DocType == "" {
		return nil, fmt.Errorf("%w: document type is required", domain.ErrInvalidInput)
	}
	reviewer := input.ReviewedBy
	if reviewer == "" {
		reviewer = defaultReviewer
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		record("review", err)
		return nil, err
	}
	doc, ok := booking.Document(input.DocType)
	if !ok {
		err := documentNotFound(booking, input.DocType)
		record("review", err)
		return nil, err
	}

	now := s.now()
	if err := s.bookings.SetDocumentStatus(ctx, input.BookingID, input.DocType, input.Status, reviewer, now); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			err = documentNotFound(booking, input.DocType)
		}
		record("review", err)
		return nil, err
	}
	record("review", nil)

	doc.Status = input.Status
	doc.ReviewedAt = &now
	doc.ReviewedBy = reviewer
	booking.UpdatedAt = now

	logging.Ctx(ctx).Info().Str("booking_id", booking.ID).Str("doc_type", input.DocType).
		Str("status", string(input.Status)).Msg("document reviewed")
	s.publish(ctx, kafka.BookingEvent{
		Type:      kafka.EventDocumentReviewed,
		DocType:   input.DocType,
		DocStatus: string(input.Status),
	}, booking)
	return booking, nil
}

// ConfirmBooking moves an ASSIGNED booking with every document approved to
// CONFIRMED. Preconditions are checked in order and the first failure wins.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var confirmed *domain.Booking
	err := s.locker.WithLock(ctx, confirmLockKey(bookingID), func(ctx context.Context) error {
		booking, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := booking.ConfirmError(); err != nil {
			return err
		}

		now := s.now()
		if err := s.bookings.MarkConfirmed(ctx, bookingID, now); err != nil {
			return err
		}
		booking.Status = domain.BookingStatusConfirmed
		booking.ConfirmedAt = &now
		booking.UpdatedAt = now
		confirmed = booking
		return nil
	})
	record("confirm", err)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("booking_id", bookingID).Msg("booking confirmed")
	if s.live != nil {
		payload := domain.BookingConfirmed{
			BookingID:   confirmed.ID,
			PartnerID:   *confirmed.PartnerID,
			ConfirmedAt: *confirmed.ConfirmedAt,
		}
		if err := s.live.Publish(ctx, cache.ChannelBookingConfirmed, payload); err != nil {
			metrics.EventPublishFailures.WithLabelValues("live").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("booking_id", bookingID).Msg("live publish failed")
		}
	}
	s.publish(ctx, kafka.BookingEvent{Type: kafka.EventBookingConfirmed, PartnerID: *confirmed.PartnerID}, confirmed)
	return confirmed, nil
}

// DocumentLink returns a short-lived download URL for the file behind a
// booking document.
func (s *BookingService) DocumentLink(ctx context.Context, bookingID, docType string) (string, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	doc, ok := booking.Document(docType)
	if !ok {
		return "", documentNotFound(booking, docType)
	}
	if doc.DocLink == "" {
		return "", domain.NewDetailError(domain.ErrDocumentNotFound, nil, "Document %s has no uploaded file", docType)
	}
	if s.linker == nil {
		return "", errors.New("document storage is not configured")
	}
	return s.linker.PresignedURL(ctx, doc.DocLink)
}

// Reconcile reports booking/partner pairs that disagree, for an operator to
// fix. It changes nothing.
func (s *BookingService) Reconcile(ctx context.Context) ([]domain.Inconsistency, error) {
	found, err := s.bookings.FindInconsistencies(ctx)
	if err != nil {
		return nil, err
	}
	for _, inc := range found {
		logging.Ctx(ctx).Warn().Str("kind", inc.Kind).Str("partner_id", inc.PartnerID).
			Str("booking_id", inc.BookingID).Msg("booking/partner inconsistency")
	}
	return found, nil
}

func documentNotFound(booking *domain.Booking, docType string) error {
	return domain.NewDetailError(domain.ErrDocumentNotFound,
		map[string]any{"availableTypes": booking.DocTypes()},
		"Document with type %s not found in booking", docType)
}

func (s *BookingService) invalidatePartners(ctx context.Context) {
	if s.partnerCache == nil {
		return
	}
	if err := s.partnerCache.InvalidatePartners(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("partner cache invalidation failed")
	}
}

// publish fills the booking fields of event and sends it to the booking and
// notification topics. Failures are logged; the transition already happened.
func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event.BookingID = booking.ID
	event.Status = string(booking.Status)
	event.OccurredAt = booking.UpdatedAt

	topics := []string{s.bookingTopic}
	if s.notificationsTopic != "" {
		topics = append(topics, s.notificationsTopic)
	}
	for _, topic := range topics {
		if err := s.producer.Publish(ctx, topic, booking.ID, event); err != nil {
			metrics.EventPublishFailures.WithLabelValues("kafka").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Str("event", event.Type).
				Str("booking_id", booking.ID).Msg("failed to publish booking event")
		}
	}
}

func record(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(domain.KindOf(err)))
	}
	metrics.BookingTransitions.WithLabelValues(operation, outcome).Inc()
}

var _ BookingUseCase = (*BookingService)(nil)
