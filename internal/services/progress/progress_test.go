package progress

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

func dueShipment(status string) *models.Shipment {
	return &models.Shipment{
		ID:             "s1",
		TrackingNumber: "STAAAA000000000000",
		ServiceType:    models.ServiceExpress,
		Status:         status,
		PaymentStatus:  models.PaymentPaid,
	}
}

func TestPoller_processOne_publishesNextStep(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fp, fakeRL{allowed: true}, "shipment.status_changed")

	require.NoError(t, p.processOne(context.Background(), dueShipment(models.StatusPending)))
	require.Equal(t, 1, fp.calls)
	require.Equal(t, "shipment.status_changed", fp.topic)
	require.Equal(t, []byte("s1"), fp.key)

	var msg messages.ShipmentStatusChanged
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.Equal(t, "s1", msg.ShipmentID)
	require.Equal(t, models.StatusPickedUp, msg.Status)
	require.True(t, msg.NextCheckAt.After(msg.OccurredAt))
}

func TestPoller_processOne_terminalIsNoop(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fp, nil, "t")
	require.NoError(t, p.processOne(context.Background(), dueShipment(models.StatusDelivered)))
	require.Equal(t, 0, fp.calls)
}

func TestPoller_processOne_rateLimitedSkips(t *testing.T) {
	fp := &fakeProducer{}
	p := New(nil, fp, fakeRL{allowed: false, count: 601}, "t")
	require.NoError(t, p.processOne(context.Background(), dueShipment(models.StatusPending)))
	require.Equal(t, 0, fp.calls)
}

func TestPoller_WithSettings(t *testing.T) {
	p := New(nil, &fakeProducer{}, nil, "t").
		WithSettings(5*time.Second, 7, 9, 11*time.Second, 13)
	require.Equal(t, 5*time.Second, p.pollInterval)
	require.Equal(t, 7, p.batchSize)
	require.Equal(t, 9, p.concurrency)
	require.Equal(t, 11*time.Second, p.lease)
	require.Equal(t, int64(13), p.rateLimitPerMinute)
}

type fakeRepo struct {
	calls int
}

func (r *fakeRepo) ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	r.calls++
	return []*models.Shipment{}, nil
}

func TestPoller_Run_StopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	p := New(repo, &fakeProducer{}, nil, "t").WithSettings(5*time.Millisecond, 1, 1, time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Run(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, repo.calls, 1)
}

func TestPoller_Trigger_RunsACycle(t *testing.T) {
	repo := &fakeRepo{}
	p := New(repo, &fakeProducer{}, nil, "t").WithSettings(time.Hour, 1, 1, time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	p.Trigger()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	require.GreaterOrEqual(t, repo.calls, 1)
	st := p.Stats()
	require.NotNil(t, st.LastTriggerAt)
	require.NotNil(t, st.LastCycleAt)
}
