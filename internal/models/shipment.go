package models

import "time"

// Lifecycle statuses. The chain is linear, see lifecycle.go.
const (
	StatusPending        = "pending"
	StatusPickedUp       = "picked_up"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// Service tiers control cost multiplier and delivery offset.
const (
	ServiceStandard  = "standard"
	ServiceExpress   = "express"
	ServiceOvernight = "overnight"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

type User struct {
	ID           string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

type Shipment struct {
	ID             string
	UserID         string
	TrackingNumber string

	SenderName    string
	SenderAddress string
	SenderPhone   string

	ReceiverName    string
	ReceiverAddress string
	ReceiverPhone   string

	PackageWeight     float64
	PackageDimensions string
	ServiceType       string

	Status            string
	EstimatedDelivery time.Time
	Cost              int64
	PaymentStatus     string

	// NextCheckAt schedules the next progression step for the worker.
	NextCheckAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type TrackingEvent struct {
	ID          string
	ShipmentID  string
	Status      string
	Description string
	Location    string
	EventTime   time.Time
	CreatedAt   time.Time
}

type ShipmentInput struct {
	SenderName    string
	SenderAddress string
	SenderPhone   string

	ReceiverName    string
	ReceiverAddress string
	ReceiverPhone   string

	PackageWeight     float64
	PackageDimensions string
	ServiceType       string
}
