package booking

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/domain"
)

// memStore is an in-memory stand-in for both repositories. Its writes apply
// the same conditions as the SQL ones, under one mutex.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
	partners map[string]*domain.Partner
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[string]*domain.Booking),
		partners: make(map[string]*domain.Partner),
	}
}

func (s *memStore) addBooking(b domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(&b)
}

func (s *memStore) addPartner(p domain.Partner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners[p.ID] = &p
}

func (s *memStore) booking(id string) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *cloneBooking(s.bookings[id])
}

func (s *memStore) partner(id string) domain.Partner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.partners[id]
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	c.Documents = append([]domain.Document(nil), b.Documents...)
	if b.PartnerID != nil {
		id := *b.PartnerID
		c.PartnerID = &id
	}
	return &c
}

func (s *memStore) List(ctx context.Context) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *cloneBooking(b))
	}
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (s *memStore) AssignPartner(ctx context.Context, bookingID, partnerID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[bookingID]
	if b == nil || b.Status != domain.BookingStatusPending || b.HasPartner() {
		return domain.ErrAlreadyAssigned
	}
	p := s.partners[partnerID]
	if p == nil || p.Status != domain.PartnerStatusOnline {
		return domain.ErrPartnerUnavailable
	}
	b.Status = domain.BookingStatusAssigned
	b.PartnerID = &partnerID
	b.UpdatedAt = at
	p.Status = domain.PartnerStatusBusy
	p.LastActiveAt = at
	return nil
}

func (s *memStore) SetDocumentStatus(ctx context.Context, bookingID, docType string, status domain.DocumentStatus, reviewer string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[bookingID]
	if b == nil {
		return domain.ErrDocumentNotFound
	}
	doc, ok := b.Document(docType)
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = status
	doc.ReviewedAt = &at
	doc.ReviewedBy = reviewer
	b.UpdatedAt = at
	return nil
}

func (s *memStore) MarkConfirmed(ctx context.Context, bookingID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[bookingID]
	if b == nil {
		return domain.ErrBookingNotFound
	}
	if err := b.ConfirmError(); err != nil {
		return err
	}
	b.Status = domain.BookingStatusConfirmed
	b.ConfirmedAt = &at
	b.UpdatedAt = at
	return nil
}

func (s *memStore) FindInconsistencies(ctx context.Context) ([]domain.Inconsistency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []domain.Inconsistency
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusAssigned && b.HasPartner() {
			if p := s.partners[*b.PartnerID]; p != nil && p.Status != domain.PartnerStatusBusy {
				found = append(found, domain.Inconsistency{
					Kind:      domain.InconsistencyAssignedPartnerNotBusy,
					PartnerID: p.ID,
					BookingID: b.ID,
				})
			}
		}
	}
	return found, nil
}

// partnerStore exposes the partner side of memStore.
type partnerStore struct{ *memStore }

func (s partnerStore) List(ctx context.Context) ([]domain.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Partner, 0, len(s.partners))
	for _, p := range s.partners {
		out = append(out, *p)
	}
	return out, nil
}

func (s partnerStore) GetByID(ctx context.Context, id string) (*domain.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, domain.ErrPartnerNotFound
	}
	c := *p
	return &c, nil
}

func (s partnerStore) UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	p.Location = &domain.Location{Lat: lat, Lng: lng, UpdatedAt: at}
	return nil
}

func (s partnerStore) Release(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok || p.Status != domain.PartnerStatusBusy {
		return false, nil
	}
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusAssigned && b.PartnerID != nil && *b.PartnerID == id {
			return false, nil
		}
	}
	p.Status = domain.PartnerStatusOnline
	return true, nil
}
