package shipdesk_api

import (
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
)

// JSON views of the domain structs. The password hash never leaves the
// identity layer through here.

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

type shipmentView struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"trackingNumber"`

	SenderName    string `json:"senderName"`
	SenderAddress string `json:"senderAddress,omitempty"`
	SenderPhone   string `json:"senderPhone,omitempty"`

	ReceiverName    string `json:"receiverName"`
	ReceiverAddress string `json:"receiverAddress,omitempty"`
	ReceiverPhone   string `json:"receiverPhone,omitempty"`

	PackageWeight     float64 `json:"packageWeight"`
	PackageDimensions string  `json:"packageDimensions,omitempty"`
	ServiceType       string  `json:"serviceType"`

	Status            string    `json:"status"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
	Cost              int64     `json:"cost"`
	PaymentStatus     string    `json:"paymentStatus"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toShipmentView(sh *models.Shipment) shipmentView {
	return shipmentView{
		ID:             sh.ID,
		TrackingNumber: sh.TrackingNumber,

		SenderName:    sh.SenderName,
		SenderAddress: sh.SenderAddress,
		SenderPhone:   sh.SenderPhone,

		ReceiverName:    sh.ReceiverName,
		ReceiverAddress: sh.ReceiverAddress,
		ReceiverPhone:   sh.ReceiverPhone,

		PackageWeight:     sh.PackageWeight,
		PackageDimensions: sh.PackageDimensions,
		ServiceType:       sh.ServiceType,

		Status:            sh.Status,
		EstimatedDelivery: sh.EstimatedDelivery,
		Cost:              sh.Cost,
		PaymentStatus:     sh.PaymentStatus,

		CreatedAt: sh.CreatedAt,
		UpdatedAt: sh.UpdatedAt,
	}
}

type eventView struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventTime   time.Time `json:"eventTime"`
}

func toEventView(e *models.TrackingEvent) eventView {
	return eventView{
		ID:          e.ID,
		Status:      e.Status,
		Description: e.Description,
		Location:    e.Location,
		EventTime:   e.EventTime,
	}
}
