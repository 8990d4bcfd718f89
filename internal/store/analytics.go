package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qrwave/qrwave/internal"
)

type dayKey struct {
	qrCodeID string
	day      time.Time
}

// InsertScans appends a batch of raw scan events and bumps the per-day
// aggregates in the same transaction, so the two tables cannot drift.
func (s *Store) InsertScans(ctx context.Context, scans []internal.ScanEvent) error {
	if len(scans) == 0 {
		return nil
	}

	counts := make(map[dayKey]int64)
	for _, scan := range scans {
		key := dayKey{
			qrCodeID: scan.QRCodeID,
			day:      scan.ScannedAt.UTC().Truncate(24 * time.Hour),
		}
		counts[key]++
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(scans, 100).Error; err != nil {
			return err
		}

		for key, count := range counts {
			rec := internal.ScanDailyCount{QRCodeID: key.qrCodeID, Day: key.day, ScanCount: count}
			if err := tx.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "qr_code_id"}, {Name: "day"}},
					DoUpdates: clause.Assignments(map[string]interface{}{
						"scan_count": gorm.Expr("scan_daily_counts.scan_count + EXCLUDED.scan_count"),
					}),
				},
			).Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert scan batch: %w", err)
	}
	return nil
}

// TotalScans sums the daily aggregates for one code.
func (s *Store) TotalScans(ctx context.Context, qrCodeID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&internal.ScanDailyCount{}).
		Where("qr_code_id = ?", qrCodeID).
		Select("COALESCE(SUM(scan_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum scans for %s: %w", qrCodeID, err)
	}
	return total, nil
}

// DailyCounts returns the per-day aggregates since the given day, oldest first.
func (s *Store) DailyCounts(ctx context.Context, qrCodeID string, since time.Time) ([]internal.ScanDailyCount, error) {
	var counts []internal.ScanDailyCount
	err := s.db.WithContext(ctx).
		Where("qr_code_id = ? AND day >= ?", qrCodeID, since.UTC().Truncate(24*time.Hour)).
		Order("day ASC").
		Find(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts for %s: %w", qrCodeID, err)
	}
	return counts, nil
}
