package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{nil, ""},
		{ErrBookingNotFound, KindNotFound},
		{fmt.Errorf("load: %w", ErrPartnerNotFound), KindNotFound},
		{ErrDocumentNotFound, KindNotFound},
		{ErrInvalidState, KindInvalidState},
		{ErrMissingPartner, KindInvalidState},
		{NewDetailError(ErrDocumentsPending, nil, "pending"), KindInvalidState},
		{ErrAlreadyAssigned, KindConflict},
		{ErrPartnerUnavailable, KindUnavailable},
		{ErrRateLimited, KindRateLimited},
		{ErrLockTimeout, KindLockTimeout},
		{ErrInvalidStatus, KindValidation},
		{ErrInvalidInput, KindValidation},
		{fmt.Errorf("boom"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
}

func TestDetailError(t *testing.T) {
	err := fmt.Errorf("confirm: %w", NewDetailError(ErrDocumentsPending,
		map[string]any{"pending": []string{"License"}},
		"All documents must be approved. Pending: %s", "License"))

	assert.ErrorIs(t, err, ErrDocumentsPending)
	assert.Equal(t, []string{"License"}, DetailsOf(err)["pending"])
	assert.Contains(t, err.Error(), "Pending: License")
	assert.Nil(t, DetailsOf(ErrBookingNotFound))
}

func TestBooking_Documents(t *testing.T) {
	b := Booking{Documents: []Document{
		{DocType: "License", Status: DocumentStatusApproved},
		{DocType: "SELFIE", Status: DocumentStatusPending},
		{DocType: "Insurance", Status: DocumentStatusRejected},
	}}

	doc, ok := b.Document("SELFIE")
	assert.True(t, ok)
	assert.Equal(t, DocumentStatusPending, doc.Status)

	_, ok = b.Document("Passport")
	assert.False(t, ok)

	assert.Equal(t, []string{"License", "SELFIE", "Insurance"}, b.DocTypes())
	assert.Equal(t, []string{"SELFIE", "Insurance"}, b.UnapprovedDocTypes())
}

func TestBooking_HasPartner(t *testing.T) {
	empty := ""
	p := "p1"
	assert.False(t, (&Booking{}).HasPartner())
	assert.False(t, (&Booking{PartnerID: &empty}).HasPartner())
	assert.True(t, (&Booking{PartnerID: &p}).HasPartner())
}

func TestDocumentStatus_IsDecision(t *testing.T) {
	assert.True(t, DocumentStatusApproved.IsDecision())
	assert.True(t, DocumentStatusRejected.IsDecision())
	assert.False(t, DocumentStatusPending.IsDecision())
	assert.False(t, DocumentStatus("MAYBE").IsDecision())
}

func TestBooking_ConfirmError(t *testing.T) {
	p := "p1"
	approved := []Document{{DocType: "License", Status: DocumentStatusApproved}}

	assert.ErrorIs(t, (&Booking{Status: BookingStatusAssigned, Documents: approved}).ConfirmError(), ErrMissingPartner)
	assert.ErrorIs(t, (&Booking{Status: BookingStatusPending, PartnerID: &p, Documents: approved}).ConfirmError(), ErrInvalidState)
	assert.EqualError(t, (&Booking{Status: BookingStatusAssigned, PartnerID: &p}).ConfirmError(), "No documents found")

	err := (&Booking{Status: BookingStatusAssigned, PartnerID: &p, Documents: []Document{
		{DocType: "License", Status: DocumentStatusApproved},
		{DocType: "Insurance", Status: DocumentStatusRejected},
	}}).ConfirmError()
	assert.ErrorIs(t, err, ErrDocumentsPending)
	assert.Equal(t, []string{"Insurance"}, DetailsOf(err)["pending"])

	assert.NoError(t, (&Booking{Status: BookingStatusAssigned, PartnerID: &p, Documents: approved}).ConfirmError())
}
