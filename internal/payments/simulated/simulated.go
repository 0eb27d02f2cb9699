// Package simulated is a fixed-delay payment provider used for local runs
// and tests when no real gateway is configured.
package simulated

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/payments"
)

type Provider struct {
	delay time.Duration
	now   func() time.Time
}

func New(delay time.Duration) *Provider {
	return &Provider{delay: delay, now: time.Now}
}

func (p *Provider) Charge(ctx context.Context, amountCents int64, card payments.Card) (payments.Receipt, error) {
	if amountCents <= 0 {
		return payments.Receipt{}, fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	number := strings.ReplaceAll(card.Number, " ", "")
	if len(number) < 12 {
		return payments.Receipt{}, payments.ErrDeclined
	}

	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return payments.Receipt{}, ctx.Err()
		case <-t.C:
		}
	}

	now := p.now().UTC()
	return payments.Receipt{
		ProviderRef: fmt.Sprintf("sim_%d", now.UnixNano()),
		AmountCents: amountCents,
		ChargedAt:   now,
	}, nil
}
