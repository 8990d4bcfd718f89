package internal

import (
	"time"
)

// QRCode kinds. Static codes embed their destination in the image at
// creation time and never pass through the redirect service.
const (
	KindStatic  = "static"
	KindDynamic = "dynamic"
)

// QRCode lifecycle statuses. Only StatusActive resolves to a redirect.
const (
	StatusActive       = "active"
	StatusTrialExpired = "trial_expired"
	StatusPaidExpired  = "paid_expired"
	StatusReported     = "reported"
)

type QRCode struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OwnerID        string `gorm:"type:uuid;index;not null"`
	ShortCode      string `gorm:"type:varchar(16);uniqueIndex;not null"`
	DestinationURL string `gorm:"type:text;not null"`
	Kind           string `gorm:"type:varchar(8);not null"`
	Status         string `gorm:"type:varchar(16);not null;default:'active'"`
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScanEvent is an append-only analytics row. The redirect service only
// writes these (via the queue); it never reads them back.
type ScanEvent struct {
	ID         int64  `gorm:"primaryKey;type:bigint"`
	QRCodeID   string `gorm:"type:uuid;index;not null"`
	Country    string `gorm:"type:varchar(64)"`
	City       string `gorm:"type:varchar(128)"`
	DeviceType string `gorm:"type:varchar(16)"`
	ScannedAt  time.Time
}

// ScanDailyCount is the per-day aggregate the worker upserts alongside the
// raw events, so dashboard totals don't need to scan the event table.
type ScanDailyCount struct {
	QRCodeID  string    `gorm:"type:uuid;primaryKey"`
	Day       time.Time `gorm:"type:date;primaryKey"`
	ScanCount int64     `gorm:"not null"`
}
