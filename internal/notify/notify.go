package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/deliverydesk/internal/kafka"
	"github.com/Domenick1991/deliverydesk/internal/logging"
)

// Sender turns booking events into operator notifications. Delivery is a
// structured log line; the message text is what an email or chat hook
// would carry.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	text, ok := Message(event)
	if !ok {
		logging.Ctx(ctx).Debug().Str("event", event.Type).Msg("no notification for event")
		return nil
	}
	logging.Ctx(ctx).Info().
		Str("event", event.Type).
		Str("booking_id", event.BookingID).
		Str("partner_id", event.PartnerID).
		Msg(text)
	return nil
}

// Message renders the notification text for event. ok is false for events
// nobody is notified about.
func Message(event kafka.BookingEvent) (string, bool) {
	switch event.Type {
	case kafka.EventBookingAssigned:
		return fmt.Sprintf("booking %s assigned to partner %s", event.BookingID, event.PartnerID), true
	case kafka.EventDocumentReviewed:
		return fmt.Sprintf("document %s on booking %s marked %s", event.DocType, event.BookingID, event.DocStatus), true
	case kafka.EventBookingConfirmed:
		return fmt.Sprintf("booking %s confirmed with partner %s", event.BookingID, event.PartnerID), true
	case kafka.EventPartnerReleased:
		return fmt.Sprintf("partner %s is available again", event.PartnerID), true
	default:
		return "", false
	}
}
