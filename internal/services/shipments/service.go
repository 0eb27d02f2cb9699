package shipments

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/cache"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/payments"
	"github.com/BearBump/ShipDesk/internal/storage/pgship"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Repository interface {
	CreateShipment(ctx context.Context, sh *models.Shipment, ev *models.TrackingEvent) error
	GetShipmentByID(ctx context.Context, id string) (*models.Shipment, error)
	GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	ListShipmentsByUser(ctx context.Context, userID string) ([]*models.Shipment, error)
	ApplyStatusChange(ctx context.Context, ch pgship.StatusChange) error
}

type Service struct {
	repo     Repository
	provider payments.Provider
	drafts   cache.BytesCache
	current  cache.BytesCache

	draftTTL   time.Duration
	firstCheck time.Duration
}

// New wires the lifecycle engine. drafts holds unconfirmed shipments with a
// TTL (the two-phase booking commit), current is the tracking-state cache
// shared with the tracking query service. firstCheck is how soon after
// payment the progression worker first looks at the shipment.
func New(repo Repository, provider payments.Provider, drafts, current cache.BytesCache, draftTTL, firstCheck time.Duration) *Service {
	if draftTTL <= 0 {
		draftTTL = 15 * time.Minute
	}
	if firstCheck <= 0 {
		firstCheck = 5 * time.Minute
	}
	return &Service{
		repo:       repo,
		provider:   provider,
		drafts:     drafts,
		current:    current,
		draftTTL:   draftTTL,
		firstCheck: firstCheck,
	}
}

// CreateDraft validates the booking input and quotes it. Nothing is
// persisted: the draft lives in the draft store until payment confirms or
// the TTL expires, so an abandoned booking leaves no trace.
func (s *Service) CreateDraft(ctx context.Context, userID string, in models.ShipmentInput) (*models.Shipment, error) {
	if strings.TrimSpace(in.SenderName) == "" {
		return nil, &models.ValidationError{Field: "senderName", Reason: "is required"}
	}
	if strings.TrimSpace(in.ReceiverName) == "" {
		return nil, &models.ValidationError{Field: "receiverName", Reason: "is required"}
	}
	if in.PackageWeight <= 0 {
		return nil, &models.ValidationError{Field: "packageWeight", Reason: "must be greater than zero"}
	}
	if !models.ValidServiceType(in.ServiceType) {
		return nil, &models.ValidationError{Field: "serviceType", Reason: "must be standard, express or overnight"}
	}

	tn, err := NewTrackingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sh := &models.Shipment{
		ID:             uuid.NewString(),
		UserID:         userID,
		TrackingNumber: tn,

		SenderName:    strings.TrimSpace(in.SenderName),
		SenderAddress: strings.TrimSpace(in.SenderAddress),
		SenderPhone:   strings.TrimSpace(in.SenderPhone),

		ReceiverName:    strings.TrimSpace(in.ReceiverName),
		ReceiverAddress: strings.TrimSpace(in.ReceiverAddress),
		ReceiverPhone:   strings.TrimSpace(in.ReceiverPhone),

		PackageWeight:     in.PackageWeight,
		PackageDimensions: strings.TrimSpace(in.PackageDimensions),
		ServiceType:       in.ServiceType,

		Status:            models.StatusPending,
		EstimatedDelivery: now.AddDate(0, 0, models.DeliveryDays(in.ServiceType)),
		Cost:              models.CostFor(in.PackageWeight, in.ServiceType),
		PaymentStatus:     models.PaymentPending,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.putDraft(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// ConfirmPayment charges the draft and commits it. The shipment and its
// initial pending event hit storage in one transaction; until then the
// booking can be retried or abandoned freely.
func (s *Service) ConfirmPayment(ctx context.Context, userID, draftID string, card payments.Card) (*models.Shipment, error) {
	sh, err := s.getDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}

	if _, err := s.provider.Charge(ctx, sh.Cost, card); err != nil {
		if errors.Is(err, payments.ErrDeclined) {
			sh.PaymentStatus = models.PaymentFailed
			sh.UpdatedAt = time.Now().UTC()
			if putErr := s.putDraft(ctx, sh); putErr != nil {
				slog.Warn("keep failed draft", "draft_id", draftID, "error", putErr.Error())
			}
		}
		return nil, err
	}

	now := time.Now().UTC()
	sh.PaymentStatus = models.PaymentPaid
	sh.UpdatedAt = now
	sh.NextCheckAt = now.Add(s.firstCheck)

	// The card was charged; if the commit below fails the draft still says
	// payment pending and a retried confirm charges again.
	// TODO: stamp the provider receipt on the draft and pass it as an
	// idempotency key once a real gateway is wired.
	ev := s.buildEvent(sh, models.StatusPending, now)
	if err := s.repo.CreateShipment(ctx, sh, ev); err != nil {
		return nil, err
	}

	_ = s.drafts.Del(ctx, draftKey(draftID))
	return sh, nil
}

// CancelDraft discards an unconfirmed booking. Nothing was persisted, so
// cancellation is loss-free; idempotent.
func (s *Service) CancelDraft(ctx context.Context, userID, draftID string) error {
	_, err := s.getDraft(ctx, userID, draftID)
	if err == models.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return s.drafts.Del(ctx, draftKey(draftID))
}

// GetDraft returns an unconfirmed booking for display (cost quote).
func (s *Service) GetDraft(ctx context.Context, userID, draftID string) (*models.Shipment, error) {
	return s.getDraft(ctx, userID, draftID)
}

// RecordStatusChange applies one lifecycle step. The transition is checked
// against the status chain; the derived tracking event is appended in the
// same transaction, and the cached tracking state is dropped.
func (s *Service) RecordStatusChange(ctx context.Context, shipmentID, newStatus string) (*models.Shipment, error) {
	if !models.ValidStatus(newStatus) {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status " + newStatus}
	}

	sh, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(sh.Status, newStatus) {
		return nil, &models.TransitionError{From: sh.Status, To: newStatus}
	}

	now := time.Now().UTC()
	if err := s.applyChange(ctx, sh, newStatus, now, now.Add(s.firstCheck)); err != nil {
		return nil, err
	}

	sh.Status = newStatus
	sh.UpdatedAt = now
	return sh, nil
}

// ApplyStatusChanged is the Kafka ingress from the progression worker.
// Redelivered messages are harmless: a message carrying the shipment's
// current status is a no-op.
func (s *Service) ApplyStatusChanged(ctx context.Context, msg messages.ShipmentStatusChanged) error {
	if msg.ShipmentID == "" {
		return errors.New("shipment_id is required")
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	if msg.NextCheckAt.IsZero() {
		msg.NextCheckAt = msg.OccurredAt.Add(60 * time.Minute)
	}

	sh, err := s.repo.GetShipmentByID(ctx, msg.ShipmentID)
	if err != nil {
		return err
	}
	if sh.Status == msg.Status {
		return nil
	}
	if !models.CanTransition(sh.Status, msg.Status) {
		return &models.TransitionError{From: sh.Status, To: msg.Status}
	}

	return s.applyChange(ctx, sh, msg.Status, msg.OccurredAt, msg.NextCheckAt)
}

func (s *Service) applyChange(ctx context.Context, sh *models.Shipment, newStatus string, occurredAt, nextCheckAt time.Time) error {
	ev := s.buildEvent(sh, newStatus, occurredAt)
	err := s.repo.ApplyStatusChange(ctx, pgship.StatusChange{
		ShipmentID:  sh.ID,
		Status:      newStatus,
		OccurredAt:  occurredAt,
		NextCheckAt: nextCheckAt,
		Event:       ev,
	})
	if err != nil {
		return err
	}

	if s.current != nil {
		_ = s.current.Del(ctx, "shipment:"+sh.TrackingNumber)
	}
	return nil
}

func (s *Service) buildEvent(sh *models.Shipment, status string, at time.Time) *models.TrackingEvent {
	return &models.TrackingEvent{
		ID:          uuid.NewString(),
		ShipmentID:  sh.ID,
		Status:      status,
		Description: models.EventDescription(status),
		Location:    models.EventLocation(status, sh),
		EventTime:   at,
		CreatedAt:   at,
	}
}

// GetForUser loads a shipment and hides it from anyone but the owner.
func (s *Service) GetForUser(ctx context.Context, userID, shipmentID string) (*models.Shipment, error) {
	sh, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if sh.UserID != userID {
		return nil, models.ErrNotFound
	}
	return sh, nil
}

// ListForUser returns the caller's shipments, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.Shipment, error) {
	return s.repo.ListShipmentsByUser(ctx, userID)
}

type Stats struct {
	Total      int   `json:"total"`
	Delivered  int   `json:"delivered"`
	InTransit  int   `json:"inTransit"`
	Pending    int   `json:"pending"`
	TotalSpent int64 `json:"totalSpent"`
}

// StatsForUser aggregates the dashboard counters.
func (s *Service) StatsForUser(ctx context.Context, userID string) (Stats, error) {
	list, err := s.repo.ListShipmentsByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Total: len(list)}
	for _, sh := range list {
		switch sh.Status {
		case models.StatusDelivered:
			st.Delivered++
		case models.StatusInTransit:
			st.InTransit++
		case models.StatusPending:
			st.Pending++
		}
		st.TotalSpent += sh.Cost
	}
	return st, nil
}

const trackingAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewTrackingNumber returns "ST" plus 16 random base32 characters (80 bits
// of entropy), so uniqueness does not depend on the clock.
func NewTrackingNumber() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "tracking number")
	}
	b := strings.Builder{}
	b.WriteString("ST")
	for _, c := range buf {
		b.WriteByte(trackingAlphabet[int(c)%len(trackingAlphabet)])
	}
	return b.String(), nil
}

func draftKey(id string) string {
	return fmt.Sprintf("draft:%s", id)
}

func (s *Service) putDraft(ctx context.Context, sh *models.Shipment) error {
	b, err := json.Marshal(sh)
	if err != nil {
		return errors.Wrap(err, "marshal draft")
	}
	return s.drafts.Set(ctx, draftKey(sh.ID), b, s.draftTTL)
}

func (s *Service) getDraft(ctx context.Context, userID, draftID string) (*models.Shipment, error) {
	b, ok, err := s.drafts.Get(ctx, draftKey(draftID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	var sh models.Shipment
	if err := json.Unmarshal(b, &sh); err != nil {
		return nil, errors.Wrap(err, "unmarshal draft")
	}
	if sh.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &sh, nil
}
