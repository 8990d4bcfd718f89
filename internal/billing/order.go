// Package billing implements upgrade order initiation. It re-derives
// ownership and eligibility from the store on every call and never
// mutates local state; the status flip on payment confirmation belongs to
// the provider's webhook consumer.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qrwave/qrwave/internal"
	"github.com/qrwave/qrwave/internal/store"
)

var (
	// ErrNotFound covers both an unknown code and a code owned by
	// someone else; callers cannot probe for other users' records.
	ErrNotFound = errors.New("qr code not found")

	ErrAlreadyUpgraded = errors.New("qr code is already upgraded")
)

type Store interface {
	FindOwned(ctx context.Context, id, ownerID string) (*internal.QRCode, error)
}

type Config struct {
	AmountMinor   int64
	Currency      string
	PaidThreshold time.Duration
}

type Service struct {
	store    Store
	provider Provider
	cfg      Config
	now      func() time.Time
}

func NewService(s Store, provider Provider, cfg Config) *Service {
	return &Service{store: s, provider: provider, cfg: cfg, now: time.Now}
}

// CreateUpgradeOrder verifies the caller owns the record, re-derives its
// upgrade eligibility from current state, and only then asks the payment
// provider for an order.
func (s *Service) CreateUpgradeOrder(ctx context.Context, ownerID, qrCodeID string) (*OrderRef, error) {
	qr, err := s.store.FindOwned(ctx, qrCodeID, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load qr code: %w", err)
	}

	if Eligibility(qr.Status, qr.ExpiresAt, s.now(), s.cfg.PaidThreshold) == AlreadyUpgraded {
		return nil, ErrAlreadyUpgraded
	}

	ref, err := s.provider.CreateOrder(ctx, OrderRequest{
		AmountMinor: s.cfg.AmountMinor,
		Currency:    s.cfg.Currency,
		OwnerID:     ownerID,
		QRCodeID:    qrCodeID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upgrade order: %w", err)
	}

	slog.Info("upgrade order created", "order_id", ref.OrderID, "qr_code_id", qrCodeID)
	return ref, nil
}
