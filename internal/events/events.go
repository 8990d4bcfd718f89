package events

import (
	"strings"
	"time"
)

// ScanEvent is the message published for every successful scan of an
// active dynamic code. It carries only coarse, anonymous visit data.
type ScanEvent struct {
	QRCodeID   string    `json:"qr_code_id"`
	Country    string    `json:"country"`
	City       string    `json:"city"`
	DeviceType string    `json:"device_type"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var (
	mobileMarkers = []string{"mobile", "android", "iphone", "ipad", "phone"}
	tabletMarkers = []string{"tablet"}
)

// ClassifyDevice buckets a user agent string by substring matching.
// Mobile markers are checked before tablet markers, so a UA carrying both
// classifies as mobile. Best effort only.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return DeviceMobile
		}
	}
	for _, m := range tabletMarkers {
		if strings.Contains(ua, m) {
			return DeviceTablet
		}
	}
	return DeviceDesktop
}
