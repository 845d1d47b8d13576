package notify

import (
	"context"
	"testing"

	"github.com/Domenick1991/deliverydesk/internal/kafka"
	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name  string
		event kafka.BookingEvent
		want  string
		ok    bool
	}{
		{"assigned", kafka.BookingEvent{Type: kafka.EventBookingAssigned, BookingID: "b1", PartnerID: "p1"}, "booking b1 assigned to partner p1", true},
		{"reviewed", kafka.BookingEvent{Type: kafka.EventDocumentReviewed, BookingID: "b1", DocType: "license", DocStatus: "APPROVED"}, "document license on booking b1 marked APPROVED", true},
		{"confirmed", kafka.BookingEvent{Type: kafka.EventBookingConfirmed, BookingID: "b1", PartnerID: "p1"}, "booking b1 confirmed with partner p1", true},
		{"released", kafka.BookingEvent{Type: kafka.EventPartnerReleased, PartnerID: "p1"}, "partner p1 is available again", true},
		{"unknown", kafka.BookingEvent{Type: "something_else"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Message(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSender_Send(t *testing.T) {
	s := NewSender()
	assert.NoError(t, s.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventBookingConfirmed, BookingID: "b1"}))
	assert.NoError(t, s.Send(context.Background(), kafka.BookingEvent{Type: "unknown"}))
}
