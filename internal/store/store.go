package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/qrwave/qrwave/internal"
)

// ErrNotFound covers both a record that does not exist and a record the
// caller does not own. Callers must not be able to tell the two apart.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindByShortCode resolves the public scan token to its record.
func (s *Store) FindByShortCode(ctx context.Context, shortCode string) (*internal.QRCode, error) {
	var qr internal.QRCode
	err := s.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&qr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query qr code by short code: %w", err)
	}
	return &qr, nil
}

// FindOwned fetches a record by id scoped to its owner. The owner filter
// lives in the query itself so the store cannot hand back another user's
// record under any circumstances.
func (s *Store) FindOwned(ctx context.Context, id, ownerID string) (*internal.QRCode, error) {
	var qr internal.QRCode
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&qr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query qr code %s: %w", id, err)
	}
	return &qr, nil
}

func (s *Store) Create(ctx context.Context, qr *internal.QRCode) error {
	if err := s.db.WithContext(ctx).Create(qr).Error; err != nil {
		return fmt.Errorf("failed to create qr code: %w", err)
	}
	return nil
}
