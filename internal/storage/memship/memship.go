// Package memship is an in-memory record store with the same repository
// surface as pgship. It keeps collections as head-insert lists (saving a
// record puts it first, replacing any record with the same id), which is the
// behavior service tests rely on. Intended as a test double and for local
// runs without Postgres.
package memship

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/storage/pgship"
)

type Storage struct {
	mu sync.Mutex

	users     []*models.User
	shipments []*models.Shipment
	events    []*models.TrackingEvent

	unavailable bool
}

func New() *Storage {
	return &Storage{}
}

// SetUnavailable simulates a lost storage medium: reads degrade to empty
// collections, writes fail with ErrStorageUnavailable.
func (s *Storage) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

func (s *Storage) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return models.ErrStorageUnavailable
	}
	for _, ex := range s.users {
		if ex.Email == u.Email && ex.ID != u.ID {
			return models.ErrDuplicateUser
		}
	}
	cp := *u
	s.users = prependUser(s.users, &cp)
	return nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, models.ErrNotFound
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, models.ErrNotFound
	}
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Storage) CreateShipment(_ context.Context, sh *models.Shipment, ev *models.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return models.ErrStorageUnavailable
	}
	cp := *sh
	s.shipments = prependShipment(s.shipments, &cp)
	if ev != nil {
		ec := *ev
		s.events = prependEvent(s.events, &ec)
	}
	return nil
}

func (s *Storage) GetShipmentByID(_ context.Context, id string) (*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, models.ErrNotFound
	}
	for _, sh := range s.shipments {
		if sh.ID == id {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Storage) GetShipmentByTrackingNumber(_ context.Context, trackingNumber string) (*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, models.ErrNotFound
	}
	for _, sh := range s.shipments {
		if sh.TrackingNumber == trackingNumber {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Storage) ListShipmentsByUser(_ context.Context, userID string) ([]*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Shipment{}
	if s.unavailable {
		return out, nil
	}
	for _, sh := range s.shipments {
		if sh.UserID == userID {
			cp := *sh
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Storage) ApplyStatusChange(_ context.Context, ch pgship.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return models.ErrStorageUnavailable
	}
	var found *models.Shipment
	for _, sh := range s.shipments {
		if sh.ID == ch.ShipmentID {
			found = sh
			break
		}
	}
	if found == nil {
		return models.ErrNotFound
	}
	found.Status = ch.Status
	found.NextCheckAt = ch.NextCheckAt
	found.UpdatedAt = ch.OccurredAt
	if ch.Event != nil {
		ec := *ch.Event
		s.events = prependEvent(s.events, &ec)
	}
	return nil
}

func (s *Storage) ClaimDueShipments(_ context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Shipment{}
	if s.unavailable {
		return out, nil
	}
	for _, sh := range s.shipments {
		if len(out) >= limit {
			break
		}
		if sh.PaymentStatus != models.PaymentPaid || models.IsTerminal(sh.Status) {
			continue
		}
		if sh.NextCheckAt.After(now) {
			continue
		}
		sh.NextCheckAt = now.Add(lease)
		cp := *sh
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Storage) ListTrackingEvents(_ context.Context, shipmentID string, limit, offset int) ([]*models.TrackingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.TrackingEvent{}
	if s.unavailable {
		return out, nil
	}
	for _, e := range s.events {
		if e.ShipmentID == shipmentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventTime.After(out[j].EventTime) })
	if offset > 0 {
		if offset >= len(out) {
			return []*models.TrackingEvent{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func prependUser(list []*models.User, u *models.User) []*models.User {
	out := []*models.User{u}
	for _, ex := range list {
		if ex.ID != u.ID {
			out = append(out, ex)
		}
	}
	return out
}

func prependShipment(list []*models.Shipment, sh *models.Shipment) []*models.Shipment {
	out := []*models.Shipment{sh}
	for _, ex := range list {
		if ex.ID != sh.ID {
			out = append(out, ex)
		}
	}
	return out
}

func prependEvent(list []*models.TrackingEvent, e *models.TrackingEvent) []*models.TrackingEvent {
	out := []*models.TrackingEvent{e}
	for _, ex := range list {
		if ex.ID != e.ID {
			out = append(out, ex)
		}
	}
	return out
}
