package domain

import "time"

// LocationUpdate is published on every accepted GPS update.
type LocationUpdate struct {
	PartnerID string    `json:"partnerId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingConfirmed is published once a booking reaches CONFIRMED.
type BookingConfirmed struct {
	BookingID   string    `json:"bookingId"`
	PartnerID   string    `json:"partnerId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}
