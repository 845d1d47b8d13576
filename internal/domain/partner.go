package domain

import "time"

type PartnerStatus string

const (
	PartnerStatusOnline  PartnerStatus = "online"
	PartnerStatusBusy    PartnerStatus = "busy"
	PartnerStatusOffline PartnerStatus = "offline"
)

type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"lastUpdated"`
}

type Partner struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	City         string        `json:"city"`
	Status       PartnerStatus `json:"status"`
	Location     *Location     `json:"location,omitempty"`
	LastActiveAt time.Time     `json:"lastActiveAt"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// PartnerPosition is the flattened view served to the live map.
type PartnerPosition struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updatedAt"`
}
