package domain

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAssigned  BookingStatus = "ASSIGNED"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	// Reserved for the fulfilment side; no transition here produces them.
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// IsDecision reports whether s is a valid outcome of a document review.
func (s DocumentStatus) IsDecision() bool {
	return s == DocumentStatusApproved || s == DocumentStatusRejected
}

type Document struct {
	DocType    string         `json:"docType"`
	DocLink    string         `json:"docLink,omitempty"`
	Status     DocumentStatus `json:"status"`
	ReviewedAt *time.Time     `json:"reviewedAt,omitempty"`
	ReviewedBy string         `json:"reviewedBy,omitempty"`
}

type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	Location    string        `json:"location"`
	Status      BookingStatus `json:"status"`
	PartnerID   *string       `json:"partnerId,omitempty"`
	Documents   []Document    `json:"document"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	ConfirmedAt *time.Time    `json:"confirmedAt,omitempty"`
}

func (b *Booking) HasPartner() bool {
	return b.PartnerID != nil && *b.PartnerID != ""
}

// Document returns the entry with the given docType, if any.
func (b *Booking) Document(docType string) (*Document, bool) {
	for i := range b.Documents {
		if b.Documents[i].DocType == docType {
			return &b.Documents[i], true
		}
	}
	return nil, false
}

// DocTypes lists every docType on the booking in display order.
func (b *Booking) DocTypes() []string {
	types := make([]string, 0, len(b.Documents))
	for _, d := range b.Documents {
		types = append(types, d.DocType)
	}
	return types
}

// UnapprovedDocTypes lists docTypes whose status is not APPROVED.
func (b *Booking) UnapprovedDocTypes() []string {
	var pending []string
	for _, d := range b.Documents {
		if d.Status != DocumentStatusApproved {
			pending = append(pending, d.DocType)
		}
	}
	return pending
}

// ConfirmError returns the first unmet confirmation precondition, checked in
// order: partner, status, documents present, documents approved.
func (b *Booking) ConfirmError() error {
	if !b.HasPartner() {
		return ErrMissingPartner
	}
	if b.Status != BookingStatusAssigned {
		return NewDetailError(ErrInvalidState,
			map[string]any{"status": b.Status},
			"Booking must be assigned first. Current status: %s", b.Status)
	}
	if len(b.Documents) == 0 {
		return NewDetailError(ErrDocumentsPending,
			map[string]any{"pending": []string{}}, "No documents found")
	}
	if pending := b.UnapprovedDocTypes(); len(pending) > 0 {
		return NewDetailError(ErrDocumentsPending,
			map[string]any{"pending": pending},
			"All documents must be approved. Pending: %s", strings.Join(pending, ", "))
	}
	return nil
}

// Inconsistency is a booking/partner pair left out of step, e.g. by a crash
// between the two writes of an assignment or by a manual data fix.
type Inconsistency struct {
	Kind      string `json:"kind"`
	PartnerID string `json:"partnerId"`
	BookingID string `json:"bookingId,omitempty"`
}

const (
	InconsistencyBusyWithoutBooking     = "busy_without_booking"
	InconsistencyAssignedPartnerNotBusy = "assigned_partner_not_busy"
)
