package models

import "math"

const (
	baseRate    = 50
	perKilogram = 20
)

// ServiceMultiplier returns the cost multiplier for a tier (standard tier
// for anything unknown; CreateDraft validates the tier before we get here).
func ServiceMultiplier(serviceType string) int64 {
	switch serviceType {
	case ServiceOvernight:
		return 3
	case ServiceExpress:
		return 2
	default:
		return 1
	}
}

// CostFor computes the quoted cost in integer currency units:
// round((50 + weight*20) * multiplier), half away from zero.
func CostFor(weight float64, serviceType string) int64 {
	return int64(math.Round((baseRate + weight*perKilogram) * float64(ServiceMultiplier(serviceType))))
}

// DeliveryDays returns the estimated-delivery offset for a tier.
func DeliveryDays(serviceType string) int {
	switch serviceType {
	case ServiceOvernight:
		return 1
	case ServiceExpress:
		return 2
	default:
		return 5
	}
}

func ValidServiceType(serviceType string) bool {
	switch serviceType {
	case ServiceStandard, ServiceExpress, ServiceOvernight:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPickedUp, StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from status.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusCancelled
}

var forward = map[string]string{
	StatusPending:        StatusPickedUp,
	StatusPickedUp:       StatusInTransit,
	StatusInTransit:      StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// NextStatus returns the single legal forward step, ok=false on terminal.
func NextStatus(status string) (string, bool) {
	next, ok := forward[status]
	return next, ok
}

// CanTransition validates a status change: one forward step along the chain,
// or cancellation from any non-terminal status.
func CanTransition(from, to string) bool {
	if to == StatusCancelled {
		return !IsTerminal(from)
	}
	return forward[from] == to
}

// EventDescription derives the narrative line for a status. Total over the
// enum plus a default clause.
func EventDescription(status string) string {
	switch status {
	case StatusPending:
		return "Shipment created and awaiting pickup"
	case StatusPickedUp:
		return "Package has been picked up from sender"
	case StatusInTransit:
		return "Package is in transit to destination"
	case StatusOutForDelivery:
		return "Package is out for delivery"
	case StatusDelivered:
		return "Package has been delivered successfully"
	case StatusCancelled:
		return "Shipment has been cancelled"
	default:
		return "Status updated"
	}
}

// EventLocation derives the location line for a status; pickup and delivery
// use the shipment's own addresses.
func EventLocation(status string, s *Shipment) string {
	switch status {
	case StatusPending:
		return "Origin facility"
	case StatusPickedUp:
		return s.SenderAddress
	case StatusInTransit:
		return "Transit hub"
	case StatusOutForDelivery:
		return "Local delivery facility"
	case StatusDelivered:
		return s.ReceiverAddress
	case StatusCancelled:
		return "Origin facility"
	default:
		return "Unknown location"
	}
}
