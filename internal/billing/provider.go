package billing

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// OrderRequest carries everything the provider needs to create one
// upgrade order. Owner and code ids travel as provider-side metadata so
// the asynchronous confirmation can be matched back to exactly one record
// without trusting anything the client sends later.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	OwnerID     string
	QRCodeID    string
}

// OrderRef is the minimal reference returned to the caller. Never the
// full provider response, never key material.
type OrderRef struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderRef, error)
}

type stripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) Provider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeProvider{api: api}
}

func (p *stripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (*OrderRef, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	// The code id doubles as the idempotency key: retried upgrade
	// attempts for one record collapse into one provider order.
	params.IdempotencyKey = stripe.String(req.QRCodeID)
	params.AddMetadata("user_id", req.OwnerID)
	params.AddMetadata("qr_code_id", req.QRCodeID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &OrderRef{
		OrderID:  pi.ID,
		Amount:   req.AmountMinor,
		Currency: req.Currency,
	}, nil
}
