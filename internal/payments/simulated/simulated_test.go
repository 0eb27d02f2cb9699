package simulated

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/payments"
	"github.com/stretchr/testify/require"
)

func TestProvider_Charge_OK(t *testing.T) {
	p := New(0)
	r, err := p.Charge(context.Background(), 200, payments.Card{Number: "4242 4242 4242 4242"})
	require.NoError(t, err)
	require.Equal(t, int64(200), r.AmountCents)
	require.NotEmpty(t, r.ProviderRef)
}

func TestProvider_Charge_Declined(t *testing.T) {
	p := New(0)
	_, err := p.Charge(context.Background(), 200, payments.Card{Number: "1234"})
	require.ErrorIs(t, err, payments.ErrDeclined)
}

func TestProvider_Charge_BadAmount(t *testing.T) {
	p := New(0)
	_, err := p.Charge(context.Background(), 0, payments.Card{Number: "4242424242424242"})
	require.Error(t, err)
}

func TestProvider_Charge_Abortable(t *testing.T) {
	p := New(5 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.Charge(ctx, 200, payments.Card{Number: "4242424242424242"})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("charge did not abort on cancel")
	}
}
