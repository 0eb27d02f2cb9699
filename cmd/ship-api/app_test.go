package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/config"
	"github.com/BearBump/ShipDesk/internal/api/shipdesk_api"
	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/payments"
	"github.com/BearBump/ShipDesk/internal/payments/simulated"
	"github.com/BearBump/ShipDesk/internal/services/identity"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/BearBump/ShipDesk/internal/services/tracking"
	"github.com/BearBump/ShipDesk/internal/storage/memship"
	"github.com/stretchr/testify/require"
)

type memSessions struct{ m map[string]string }

func (s *memSessions) Create(ctx context.Context, userID string) (string, error) {
	token := "tok-" + userID
	s.m[token] = userID
	return token, nil
}
func (s *memSessions) Get(ctx context.Context, token string) (string, bool, error) {
	uid, ok := s.m[token]
	return uid, ok, nil
}
func (s *memSessions) Delete(ctx context.Context, token string) error {
	delete(s.m, token)
	return nil
}

type memCache struct{ m map[string][]byte }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}
func (c *memCache) Del(ctx context.Context, key string) error {
	delete(c.m, key)
	return nil
}

type fakeConsumer struct{}

func (c fakeConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunShipAPI_ServesAndStops(t *testing.T) {
	store := memship.New()
	idSvc := identity.New(store, &memSessions{m: map[string]string{}}, nil, 0)
	shSvc := shipments.New(store, simulated.New(0), &memCache{m: map[string][]byte{}}, &memCache{m: map[string][]byte{}}, time.Minute, time.Minute)
	trSvc := tracking.New(store, nil, time.Minute)
	api := shipdesk_api.New(idSvc, shSvc, trSvc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	opts := shipAPIOpts{
		httpAddr:      "127.0.0.1:0",
		topic:         "t",
		consumerGroup: "g",
		onListen:      func(httpAddr string) { addrCh <- httpAddr },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- runShipAPI(ctx, opts, api, shSvc, fakeConsumer{})
	}()

	httpAddr := <-addrCh

	resp, err := http.Get("http://" + httpAddr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting server to stop")
	}
}

func TestApplyStatusMessage_CancelledWhileAdvanceInFlight(t *testing.T) {
	ctx := context.Background()
	store := memship.New()
	shSvc := shipments.New(store, simulated.New(0), &memCache{m: map[string][]byte{}}, &memCache{m: map[string][]byte{}}, time.Minute, time.Minute)

	draft, err := shSvc.CreateDraft(ctx, "u1", models.ShipmentInput{
		SenderName: "Alice", ReceiverName: "Bob", PackageWeight: 1, ServiceType: models.ServiceStandard,
	})
	require.NoError(t, err)
	sh, err := shSvc.ConfirmPayment(ctx, "u1", draft.ID, payments.Card{Number: "4242424242424242"})
	require.NoError(t, err)

	// the worker published an advance...
	now := time.Now().UTC()
	msg := messages.ShipmentStatusChanged{
		ShipmentID:  sh.ID,
		Status:      models.StatusPickedUp,
		OccurredAt:  now,
		NextCheckAt: now.Add(time.Hour),
	}
	b, err := json.Marshal(msg)
	require.NoError(t, err)

	// ...and the owner cancelled before it arrived
	_, err = shSvc.RecordStatusChange(ctx, sh.ID, models.StatusCancelled)
	require.NoError(t, err)

	// the stale advance is committed away instead of stalling the consumer
	require.NoError(t, applyStatusMessage(ctx, shSvc, b))

	got, err := store.GetShipmentByID(ctx, sh.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, got.Status)
}

func TestApplyStatusMessage_SkipsMalformedAndUnknown(t *testing.T) {
	ctx := context.Background()
	store := memship.New()
	shSvc := shipments.New(store, simulated.New(0), &memCache{m: map[string][]byte{}}, &memCache{m: map[string][]byte{}}, time.Minute, time.Minute)

	require.NoError(t, applyStatusMessage(ctx, shSvc, []byte("{not json")))

	b, err := json.Marshal(messages.ShipmentStatusChanged{
		ShipmentID: "missing", Status: models.StatusPickedUp,
	})
	require.NoError(t, err)
	require.NoError(t, applyStatusMessage(ctx, shSvc, b))
}

func TestNewPaymentProvider_Selection(t *testing.T) {
	cfg := &config.Config{}
	cfg.ShipDesk.PaymentProviderMode = "gateway"
	cfg.ShipDesk.PaymentGatewayBaseURL = "http://localhost:9000"
	require.NotNil(t, newPaymentProvider(cfg))

	cfg.ShipDesk.PaymentProviderMode = "simulated"
	p := newPaymentProvider(cfg)
	_, ok := p.(*simulated.Provider)
	require.True(t, ok)

	// gateway mode without a base URL falls back to simulated
	cfg.ShipDesk.PaymentProviderMode = "gateway"
	cfg.ShipDesk.PaymentGatewayBaseURL = ""
	p = newPaymentProvider(cfg)
	_, ok = p.(*simulated.Provider)
	require.True(t, ok)
}
