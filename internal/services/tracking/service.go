package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/cache"
	"github.com/BearBump/ShipDesk/internal/models"
)

type Repository interface {
	GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	ListTrackingEvents(ctx context.Context, shipmentID string, limit, offset int) ([]*models.TrackingEvent, error)
}

// Service is the public read path: anyone holding a tracking number can look
// a shipment up, no session required.
type Service struct {
	repo     Repository
	current  cache.BytesCache
	cacheTTL time.Duration
}

func New(repo Repository, current cache.BytesCache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, current: current, cacheTTL: cacheTTL}
}

type TrackResult struct {
	Shipment *models.Shipment        `json:"shipment"`
	Events   []*models.TrackingEvent `json:"events"`
}

// TrackByNumber looks the shipment up by its exact tracking number.
// Surrounding whitespace is trimmed; the match itself is case-sensitive.
// The shipment half of the result goes through the cache best-effort; events
// always come from storage.
func (s *Service) TrackByNumber(ctx context.Context, trackingNumber string) (*TrackResult, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, &models.ValidationError{Field: "trackingNumber", Reason: "is required"}
	}

	sh := s.cachedShipment(ctx, trackingNumber)
	if sh == nil {
		var err error
		sh, err = s.repo.GetShipmentByTrackingNumber(ctx, trackingNumber)
		if err != nil {
			return nil, err
		}
		s.storeShipment(ctx, sh)
	}

	events, err := s.EventsFor(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	return &TrackResult{Shipment: sh, Events: events}, nil
}

// EventsFor returns the shipment's history, newest first; empty slice when
// there is none.
func (s *Service) EventsFor(ctx context.Context, shipmentID string) ([]*models.TrackingEvent, error) {
	events, err := s.repo.ListTrackingEvents(ctx, shipmentID, 100, 0)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.TrackingEvent{}
	}
	return events, nil
}

func cacheKey(trackingNumber string) string {
	return "shipment:" + trackingNumber
}

func (s *Service) cachedShipment(ctx context.Context, trackingNumber string) *models.Shipment {
	if s.current == nil {
		return nil
	}
	b, ok, err := s.current.Get(ctx, cacheKey(trackingNumber))
	if err != nil {
		slog.Warn("tracking cache get", "tracking_number", trackingNumber, "error", err.Error())
		return nil
	}
	if !ok {
		return nil
	}
	var sh models.Shipment
	if err := json.Unmarshal(b, &sh); err != nil {
		_ = s.current.Del(ctx, cacheKey(trackingNumber))
		return nil
	}
	return &sh
}

func (s *Service) storeShipment(ctx context.Context, sh *models.Shipment) {
	if s.current == nil {
		return
	}
	b, err := json.Marshal(sh)
	if err != nil {
		return
	}
	if err := s.current.Set(ctx, cacheKey(sh.TrackingNumber), b, s.cacheTTL); err != nil {
		slog.Warn("tracking cache set", "tracking_number", sh.TrackingNumber, "error", err.Error())
	}
}
