// Package gatewayhttp charges cards through an external payment gateway's
// JSON API.
package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/ShipDesk/internal/payments"
	"github.com/pkg/errors"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type chargeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	CardNumber  string `json:"card_number"`
	ExpiryDate  string `json:"expiry_date"`
	CVV         string `json:"cvv"`
	HolderName  string `json:"holder_name"`
}

type chargeResponse struct {
	ChargeID  string    `json:"charge_id"`
	Status    string    `json:"status"`
	ChargedAt time.Time `json:"charged_at"`
}

func (c *Client) Charge(ctx context.Context, amountCents int64, card payments.Card) (payments.Receipt, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return payments.Receipt{}, errors.Wrap(err, "parse base url")
	}
	u.Path = "/v1/charges"
	q := u.Query()
	if c.apiKey != "" {
		q.Set("apiKey", c.apiKey)
	}
	u.RawQuery = q.Encode()

	body, err := json.Marshal(chargeRequest{
		AmountCents: amountCents,
		CardNumber:  card.Number,
		ExpiryDate:  card.ExpiryDate,
		CVV:         card.CVV,
		HolderName:  card.HolderName,
	})
	if err != nil {
		return payments.Receipt{}, errors.Wrap(err, "marshal charge")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return payments.Receipt{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return payments.Receipt{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return payments.Receipt{}, payments.ErrDeclined
	}
	if resp.StatusCode/100 != 2 {
		return payments.Receipt{}, fmt.Errorf("payment gateway http %d", resp.StatusCode)
	}

	var rb chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return payments.Receipt{}, errors.Wrap(err, "decode")
	}
	if rb.Status == "declined" {
		return payments.Receipt{}, payments.ErrDeclined
	}

	return payments.Receipt{
		ProviderRef: rb.ChargeID,
		AmountCents: amountCents,
		ChargedAt:   rb.ChargedAt,
	}, nil
}
