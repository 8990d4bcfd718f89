// Package resolve implements the dynamic QR resolution core: short code
// lookup, the lifecycle gate, and anonymous scan recording. It is pure of
// HTTP; the redirect service translates outcomes into responses.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/qrwave/qrwave/internal"
	"github.com/qrwave/qrwave/internal/events"
	"github.com/qrwave/qrwave/internal/store"
)

type Store interface {
	FindByShortCode(ctx context.Context, shortCode string) (*internal.QRCode, error)
}

type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeRedirect
	OutcomeExpired
)

// Outcome is the resolver's full decision for one scan. A redirect is
// issued if and only if the record's status is active; every other known
// record resolves to the expired page.
type Outcome struct {
	Kind     OutcomeKind
	QRCodeID string
	Location string // redirect target, set only for OutcomeRedirect
	Status   string // record status, set only for OutcomeExpired
}

// Visit is the per-request context a scan event is derived from. Country
// and city come from edge network headers and may be empty.
type Visit struct {
	UserAgent string
	Country   string
	City      string
}

type Resolver struct {
	store     Store
	cache     Cache
	publisher events.Publisher
}

func New(s Store, cache Cache, publisher events.Publisher) *Resolver {
	return &Resolver{store: s, cache: cache, publisher: publisher}
}

// Resolve maps a short code to an outcome. Cache trouble degrades to a
// database lookup; only a store failure surfaces as an error.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (*Outcome, error) {
	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return &Outcome{Kind: OutcomeNotFound}, nil
	}

	if r.cache != nil {
		snap, err := r.cache.GetSnapshot(ctx, shortCode)
		if err != nil {
			slog.Warn("snapshot cache read failed", "short_code", shortCode, "err", err)
		} else if snap != nil {
			return snap.outcome(), nil
		}
	}

	qr, err := r.store.FindByShortCode(ctx, shortCode)
	if errors.Is(err, store.ErrNotFound) {
		return &Outcome{Kind: OutcomeNotFound}, nil
	} else if err != nil {
		return nil, err
	}

	snap := Snapshot{
		QRCodeID:       qr.ID,
		Status:         qr.Status,
		DestinationURL: qr.DestinationURL,
	}
	if r.cache != nil {
		if err := r.cache.SetSnapshot(ctx, shortCode, snap); err != nil {
			slog.Warn("snapshot cache write failed", "short_code", shortCode, "err", err)
		}
	}

	return snap.outcome(), nil
}

// RecordScan publishes one analytics event for a resolved scan. Callers
// invoke it in a goroutine; failures are logged and never reported back,
// so a broken analytics pipeline cannot touch the redirect.
func (r *Resolver) RecordScan(ctx context.Context, qrCodeID string, v Visit) {
	event := events.ScanEvent{
		QRCodeID:   qrCodeID,
		Country:    orUnknown(v.Country),
		City:       orUnknown(v.City),
		DeviceType: events.ClassifyDevice(v.UserAgent),
		Timestamp:  time.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		slog.Error("failed to publish scan event", "qr_code_id", qrCodeID, "err", err)
	}
}

func (s Snapshot) outcome() *Outcome {
	if s.Status != internal.StatusActive {
		return &Outcome{Kind: OutcomeExpired, QRCodeID: s.QRCodeID, Status: s.Status}
	}
	return &Outcome{Kind: OutcomeRedirect, QRCodeID: s.QRCodeID, Location: s.DestinationURL}
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Unknown"
	}
	return v
}
