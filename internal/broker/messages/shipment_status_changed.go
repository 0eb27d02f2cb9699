package messages

import "time"

// ShipmentStatusChanged is published by the progression worker when a
// shipment advances one lifecycle step, and consumed by ship-api which
// validates the transition and appends the tracking event.
type ShipmentStatusChanged struct {
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`

	NextCheckAt time.Time `json:"next_check_at"`
}
