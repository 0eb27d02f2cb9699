package payments

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrDeclined means the provider refused the charge; the draft stays
// retryable with different card details.
var ErrDeclined = errors.New("payment declined")

type Card struct {
	Number     string
	ExpiryDate string
	CVV        string
	HolderName string
}

type Receipt struct {
	ProviderRef string
	AmountCents int64
	ChargedAt   time.Time
}

// Provider charges a card. Implementations must honor ctx cancellation:
// an aborted charge leaves no side effects on our side.
type Provider interface {
	Charge(ctx context.Context, amountCents int64, card Card) (Receipt, error)
}
