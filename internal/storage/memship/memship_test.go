package memship

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/storage/pgship"
	"github.com/stretchr/testify/require"
)

func TestMemship_ShipmentRoundTrip(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Now().UTC()

	sh := &models.Shipment{
		ID:             "s1",
		UserID:         "u1",
		TrackingNumber: "ST0001",
		SenderName:     "A",
		ReceiverName:   "B",
		PackageWeight:  1,
		ServiceType:    models.ServiceStandard,
		Status:         models.StatusPending,
		PaymentStatus:  models.PaymentPaid,
		Cost:           70,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, st.CreateShipment(ctx, sh, nil))

	// round-trip: the saved record comes back first with fields unchanged
	list, err := st.ListShipmentsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, *sh, *list[0])

	// idempotent upsert: same id saved twice keeps one record, latest values
	sh2 := *sh
	sh2.Status = models.StatusPickedUp
	require.NoError(t, st.CreateShipment(ctx, &sh2, nil))
	list, err = st.ListShipmentsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, models.StatusPickedUp, list[0].Status)

	// newest-first ordering
	sh3 := *sh
	sh3.ID = "s2"
	sh3.TrackingNumber = "ST0002"
	require.NoError(t, st.CreateShipment(ctx, &sh3, nil))
	list, err = st.ListShipmentsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "s2", list[0].ID)
}

func TestMemship_DuplicateEmail(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, &models.User{ID: "u1", Email: "a@b.c"}))
	require.ErrorIs(t, st.CreateUser(ctx, &models.User{ID: "u2", Email: "a@b.c"}), models.ErrDuplicateUser)

	// no second record was created
	u, err := st.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
}

func TestMemship_EventsSortedDesc(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Now().UTC()

	sh := &models.Shipment{ID: "s1", UserID: "u1", TrackingNumber: "ST1", PaymentStatus: models.PaymentPaid, Status: models.StatusPending}
	require.NoError(t, st.CreateShipment(ctx, sh, &models.TrackingEvent{
		ID: "e1", ShipmentID: "s1", Status: models.StatusPending, EventTime: now,
	}))
	require.NoError(t, st.ApplyStatusChange(ctx, pgship.StatusChange{
		ShipmentID: "s1", Status: models.StatusPickedUp, OccurredAt: now.Add(time.Hour),
		Event: &models.TrackingEvent{ID: "e2", ShipmentID: "s1", Status: models.StatusPickedUp, EventTime: now.Add(time.Hour)},
	}))

	evs, err := st.ListTrackingEvents(ctx, "s1", 10, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	require.Equal(t, "e2", evs[0].ID)
	require.Equal(t, "e1", evs[1].ID)

	evs, err = st.ListTrackingEvents(ctx, "missing", 10, 0)
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestMemship_Unavailable(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.CreateShipment(ctx, &models.Shipment{ID: "s1", UserID: "u1"}, nil))
	st.SetUnavailable(true)

	// reads degrade to empty collections rather than raising
	list, err := st.ListShipmentsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, list)

	// writes fail loudly
	require.ErrorIs(t, st.CreateShipment(ctx, &models.Shipment{ID: "s2"}, nil), models.ErrStorageUnavailable)
}

func TestMemship_ClaimDueShipments(t *testing.T) {
	st := New()
	ctx := context.Background()
	now := time.Now().UTC()

	due := &models.Shipment{ID: "s1", UserID: "u1", TrackingNumber: "ST1", Status: models.StatusPending, PaymentStatus: models.PaymentPaid, NextCheckAt: now.Add(-time.Minute)}
	notDue := &models.Shipment{ID: "s2", UserID: "u1", TrackingNumber: "ST2", Status: models.StatusPending, PaymentStatus: models.PaymentPaid, NextCheckAt: now.Add(time.Hour)}
	terminal := &models.Shipment{ID: "s3", UserID: "u1", TrackingNumber: "ST3", Status: models.StatusDelivered, PaymentStatus: models.PaymentPaid, NextCheckAt: now.Add(-time.Minute)}
	require.NoError(t, st.CreateShipment(ctx, due, nil))
	require.NoError(t, st.CreateShipment(ctx, notDue, nil))
	require.NoError(t, st.CreateShipment(ctx, terminal, nil))

	picked, err := st.ClaimDueShipments(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, picked, 1)
	require.Equal(t, "s1", picked[0].ID)

	// leased: second claim comes up empty
	picked, err = st.ClaimDueShipments(ctx, now, 10, time.Minute)
	require.NoError(t, err)
	require.Empty(t, picked)
}
